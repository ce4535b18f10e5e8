package knapsack

import "math/rand/v2"

// Value sums the values of the picked items.
func Value(p *Problem, s *Solution) float64 {
	total := 0.0
	for i, on := range s.Picked {
		if on {
			total += p.values[i]
		}
	}
	return total
}

// TotalWeight sums the weights of the picked items.
func TotalWeight(p *Problem, s *Solution) float64 {
	total := 0.0
	for i, on := range s.Picked {
		if on {
			total += p.weights[i]
		}
	}
	return total
}

// Penalty returns capacity - weight when the knapsack is overfull, 0 otherwise.
func Penalty(p *Problem, s *Solution) float64 {
	if w := TotalWeight(p, s); w > p.capacity {
		return p.capacity - w
	}
	return 0
}

// Flip toggles one uniformly chosen item.
func Flip(s *Solution, _ *Problem, rng *rand.Rand) {
	i := rng.IntN(len(s.Picked))
	s.Picked[i] = !s.Picked[i]
}

// Factory returns a population factory producing random n-item solutions.
func Factory(n int) func(i int, rng *rand.Rand) *Solution {
	return func(_ int, rng *rand.Rand) *Solution {
		return Random(n, rng)
	}
}
