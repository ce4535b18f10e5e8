package knapsack

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/cwbudde/optima/internal/opt"
)

// Solution is a bit vector of picked items.
type Solution struct {
	opt.Evaluation
	Picked []bool `json:"picked"`
}

// NewSolution copies picked into a fresh, unevaluated solution.
func NewSolution(picked []bool) *Solution {
	return &Solution{Picked: append([]bool(nil), picked...)}
}

// Empty returns a solution with no item picked.
func Empty(n int) *Solution {
	return &Solution{Picked: make([]bool, n)}
}

// Random returns a solution where every item is picked with probability 1/2.
func Random(n int, rng *rand.Rand) *Solution {
	s := Empty(n)
	for i := range s.Picked {
		s.Picked[i] = rng.IntN(2) == 1
	}
	return s
}

func (s *Solution) Clone() *Solution {
	c := &Solution{Evaluation: s.Evaluation, Picked: make([]bool, len(s.Picked))}
	copy(c.Picked, s.Picked)
	return c
}

// CopyFrom overwrites s with src, reusing the bit vector when it is large enough.
func (s *Solution) CopyFrom(src *Solution) {
	s.Evaluation = src.Evaluation
	if cap(s.Picked) < len(src.Picked) {
		s.Picked = make([]bool, len(src.Picked))
	}
	s.Picked = s.Picked[:len(src.Picked)]
	copy(s.Picked, src.Picked)
}

// Len returns the number of loci.
func (s *Solution) Len() int { return len(s.Picked) }

// SwapTail exchanges loci [from, Len) with other.
func (s *Solution) SwapTail(other *Solution, from int) {
	for i := from; i < len(s.Picked); i++ {
		s.Picked[i], other.Picked[i] = other.Picked[i], s.Picked[i]
	}
	s.Invalidate()
	other.Invalidate()
}

// MutateLocus flips item i.
func (s *Solution) MutateLocus(i int, _ *rand.Rand) {
	s.Picked[i] = !s.Picked[i]
	s.Invalidate()
}

// Items returns the indices of the picked items.
func (s *Solution) Items() []int {
	var items []int
	for i, on := range s.Picked {
		if on {
			items = append(items, i)
		}
	}
	return items
}

// String renders the bit vector, e.g. "1100000".
func (s *Solution) String() string {
	var b strings.Builder
	b.Grow(len(s.Picked))
	for _, on := range s.Picked {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// CSVRecord renders a telemetry row: index, value, penalty, feasible.
func (s *Solution) CSVRecord(index int) []string {
	return []string{
		strconv.Itoa(index),
		strconv.FormatFloat(s.Value, 'g', -1, 64),
		strconv.FormatFloat(s.Penalty, 'g', -1, 64),
		strconv.FormatBool(s.Feasible),
	}
}

// CSVHeader matches CSVRecord.
func CSVHeader() []string {
	return []string{"iter", "value", "penalty", "feasible"}
}

// Key identifies a (problem, payload) pair for evaluation caching.
func Key(p *Problem, s *Solution) string {
	return strconv.FormatUint(uint64(p.ID()), 10) + ":" + s.String()
}
