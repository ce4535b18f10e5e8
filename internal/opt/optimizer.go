package opt

// Optimizer is a continuous black-box minimizer over a box-bounded space.
// It is used to warm-start discrete searches from a continuous relaxation.
type Optimizer interface {
	// Run minimizes eval over [lower, upper]^dim and returns the best point and its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64, error)
}
