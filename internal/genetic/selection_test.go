package genetic

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/optima/internal/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chiSquare returns the Pearson statistic of observed counts against expected proportions.
func chiSquare(counts []int, weights []float64) float64 {
	n, total := 0, 0.0
	for i := range counts {
		n += counts[i]
		total += weights[i]
	}
	stat := 0.0
	for i, c := range counts {
		want := float64(n) * weights[i] / total
		d := float64(c) - want
		stat += d * d / want
	}
	return stat
}

func draw(s Selector, scores []float64, n int, rng *rand.Rand) []int {
	counts := make([]int, len(scores))
	for i := 0; i < n; i++ {
		counts[s.Select(scores, nil, rng)]++
	}
	return counts
}

func TestRouletteUniformOnEqualScores(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	scores := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}

	counts := draw(Roulette{}, scores, 10000, rng)

	// Critical value for 9 degrees of freedom at p = 0.01.
	assert.Less(t, chiSquare(counts, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}), 21.666)
}

func TestRouletteProportionalToScore(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	scores := []float64{1, 2, 3, 4}

	counts := draw(Roulette{}, scores, 20000, rng)

	// 3 degrees of freedom at p = 0.01.
	assert.Less(t, chiSquare(counts, scores), 11.345)
}

func TestRouletteShiftsNegativeScores(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	scores := []float64{-10, -5, 0}

	counts := draw(Roulette{}, scores, 5000, rng)

	// After the shift the minimum has weight epsilon and is practically never drawn.
	assert.LessOrEqual(t, counts[0], 1)
	assert.Greater(t, counts[2], counts[1])
}

func TestRouletteDegenerateScores(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	t.Run("all zero is uniform", func(t *testing.T) {
		counts := draw(Roulette{}, []float64{0, 0, 0}, 3000, rng)
		for _, c := range counts {
			assert.Greater(t, c, 800)
		}
	})

	t.Run("nan gets no weight", func(t *testing.T) {
		counts := draw(Roulette{}, []float64{math.NaN(), 1, math.NaN()}, 1000, rng)
		assert.Equal(t, []int{0, 1000, 0}, counts)
	})

	t.Run("positive infinity wins", func(t *testing.T) {
		counts := draw(Roulette{}, []float64{1, math.Inf(1), 3, math.Inf(1)}, 2000, rng)
		assert.Zero(t, counts[0])
		assert.Zero(t, counts[2])
		assert.Greater(t, counts[1], 800)
		assert.Greater(t, counts[3], 800)
	})

	t.Run("all nan is uniform", func(t *testing.T) {
		counts := draw(Roulette{}, []float64{math.NaN(), math.NaN()}, 1000, rng)
		assert.Greater(t, counts[0], 400)
		assert.Greater(t, counts[1], 400)
	})
}

func TestTournamentFullSizePicksBest(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tour, err := NewTournament(4)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, 2, tour.Select([]float64{1, 3, 9, 2}, nil, rng))
	}
}

func TestTournamentTiesGoToLowestIndex(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tour, err := NewTournament(5)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, tour.Select([]float64{0, 7, 7, 7, 7}, nil, rng))
	}
}

func TestTournamentSizeOneIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	tour, err := NewTournament(1)
	require.NoError(t, err)

	counts := draw(tour, []float64{1, 100, 1000, 10000}, 8000, rng)

	assert.Less(t, chiSquare(counts, []float64{1, 1, 1, 1}), 11.345)
}

func TestTournamentLargerThanPopulation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tour, err := NewTournament(10)
	require.NoError(t, err)

	assert.Equal(t, 10, tour.Size())
	assert.Equal(t, 1, tour.Select([]float64{1, 2}, nil, rng))
}

func TestTournamentAvoidsNaN(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tour, err := NewTournament(3)
	require.NoError(t, err)

	assert.Equal(t, 1, tour.Select([]float64{math.NaN(), -5, math.NaN()}, nil, rng))
}

func TestTournamentPrefersFeasible(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tour, err := NewTournament(4)
	require.NoError(t, err)

	// The infeasible entrants outscore the feasible ones.
	scores := []float64{8, 1, 9, 2}
	feasible := []bool{false, true, false, true}
	for i := 0; i < 100; i++ {
		assert.Equal(t, 3, tour.Select(scores, feasible, rng))
	}

	// Without feasibility the raw score decides.
	assert.Equal(t, 2, tour.Select(scores, nil, rng))

	// NaN still never wins, even when feasible.
	assert.Equal(t, 0, tour.Select([]float64{-3, math.NaN()}, []bool{false, true}, rng))
}

func TestNewTournamentValidation(t *testing.T) {
	_, err := NewTournament(0)
	require.ErrorIs(t, err, opt.ErrInvalidConfig)
}
