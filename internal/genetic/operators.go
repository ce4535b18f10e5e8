package genetic

import (
	"math/rand/v2"

	"github.com/cwbudde/optima/internal/opt"
)

// Genome is a solution whose payload is a fixed-length sequence of loci.
type Genome[S any] interface {
	opt.Solution[S]
	// Len returns the number of loci.
	Len() int
	// SwapTail exchanges loci [from, Len) with other and invalidates both evaluations.
	SwapTail(other S, from int)
	// MutateLocus perturbs locus i and invalidates the evaluation.
	MutateLocus(i int, rng *rand.Rand)
}

// SinglePoint recombines clones of a and b at a point chosen uniformly in [1, L-1].
// The first child is a[0:p] ++ b[p:L], the second b[0:p] ++ a[p:L]. Parents are not modified.
func SinglePoint[S Genome[S]](a, b S, rng *rand.Rand) (S, S, int) {
	ca, cb := a.Clone(), b.Clone()
	p := crossover(ca, cb, rng)
	return ca, cb, p
}

// crossover recombines two children in place. Both must have length >= 2.
func crossover[S Genome[S]](ca, cb S, rng *rand.Rand) int {
	p := 1 + rng.IntN(ca.Len()-1)
	ca.SwapTail(cb, p)
	return p
}

// Mutate perturbs every locus of s independently with probability rate and returns
// how many loci changed.
func Mutate[S Genome[S]](s S, rate float64, rng *rand.Rand) int {
	if rate <= 0 {
		return 0
	}
	n := 0
	for i := 0; i < s.Len(); i++ {
		if rng.Float64() < rate {
			s.MutateLocus(i, rng)
			n++
		}
	}
	return n
}
