package genetic

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/optima/internal/opt"
)

// DefaultEpsilon keeps shifted roulette weights strictly positive.
const DefaultEpsilon = 1e-9

// Selector picks a parent index from direction-normalized scores (higher is better).
// feasible runs in step with scores; a nil slice treats every individual alike.
type Selector interface {
	Select(scores []float64, feasible []bool, rng *rand.Rand) int
}

// Roulette selects individual i with probability score_i / sum(scores). When any score
// is negative, all scores are shifted by min(score) - Epsilon first.
//
// Feasibility is not consulted: penalties already lower the scores of infeasible
// individuals, and the weights stay proportional to the scores.
//
// NaN and -Inf scores get zero weight. If any score is +Inf, selection is uniform over
// those individuals. If every weight is zero, selection is uniform.
type Roulette struct {
	Epsilon float64
}

func (r Roulette) Select(scores []float64, _ []bool, rng *rand.Rand) int {
	n := len(scores)
	eps := r.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}

	lo := math.Inf(1)
	infinite := 0
	for _, s := range scores {
		switch {
		case math.IsInf(s, 1):
			infinite++
		case math.IsNaN(s) || math.IsInf(s, -1):
		case s < lo:
			lo = s
		}
	}

	if infinite > 0 {
		k := rng.IntN(infinite)
		for i, s := range scores {
			if math.IsInf(s, 1) {
				if k == 0 {
					return i
				}
				k--
			}
		}
	}

	shift := 0.0
	if lo < 0 {
		shift = eps - lo
	}

	total := 0.0
	for _, s := range scores {
		total += weight(s, shift)
	}
	if !(total > 0) || math.IsInf(total, 1) {
		return rng.IntN(n)
	}

	x := rng.Float64() * total
	last := 0
	for i, s := range scores {
		w := weight(s, shift)
		if w == 0 {
			continue
		}
		last = i
		x -= w
		if x < 0 {
			return i
		}
	}
	return last
}

func weight(score, shift float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	if w := score + shift; w > 0 {
		return w
	}
	return 0
}

// Tournament samples K distinct individuals uniformly and returns the best of them,
// ranked like Criterion.IsBetter: feasible before infeasible, then by score. Ties go
// to the lowest index. A Tournament keeps a scratch buffer and must not be
// shared between engines running concurrently.
type Tournament struct {
	k   int
	idx []int
}

// NewTournament creates a tournament selector of size k.
func NewTournament(k int) (*Tournament, error) {
	if k < 1 {
		return nil, &opt.ConfigError{Field: "tournament_size", Reason: "must be at least 1"}
	}
	return &Tournament{k: k}, nil
}

// Size returns the tournament size.
func (t *Tournament) Size() int {
	return t.k
}

func (t *Tournament) Select(scores []float64, feasible []bool, rng *rand.Rand) int {
	n := len(scores)
	k := min(t.k, n)

	if cap(t.idx) < n {
		t.idx = make([]int, n)
	}
	t.idx = t.idx[:n]
	for i := range t.idx {
		t.idx[i] = i
	}

	// Partial Fisher-Yates: the first k slots become the sample.
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		t.idx[i], t.idx[j] = t.idx[j], t.idx[i]
	}

	// Best of the sample
	winner := t.idx[0]
	for _, i := range t.idx[1:k] {
		switch {
		case prefers(scores, feasible, i, winner):
			winner = i
		case !prefers(scores, feasible, winner, i) && i < winner:
			winner = i
		}
	}
	return winner
}

func prefers(scores []float64, feasible []bool, i, j int) bool {
	if feasible == nil {
		return opt.Better(scores[i], scores[j])
	}
	return opt.Preferred(scores[i], feasible[i], scores[j], feasible[j])
}
