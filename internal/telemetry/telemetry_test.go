package telemetry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/optima/internal/knapsack"
	"github.com/cwbudde/optima/internal/opt"
	"github.com/cwbudde/optima/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	problem  = *knapsack.Problem
	solution = *knapsack.Solution
	snapshot = opt.Snapshot[problem, solution]
)

func instance(t *testing.T, id uint32) problem {
	t.Helper()
	p, err := knapsack.NewProblem(id, []float64{1, 2, 3}, []float64{4, 5, 1}, 3)
	require.NoError(t, err)
	return p
}

func evaluated(t *testing.T, p problem, picked ...bool) solution {
	t.Helper()
	c, err := opt.NewCriterion(knapsack.Value, knapsack.Penalty, true)
	require.NoError(t, err)
	s := knapsack.NewSolution(picked)
	c.Evaluate(p, s)
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSaverResetAndFlush(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "nested", "b.csv")

	s, err := NewCSVSaver(first, []string{"iter", "value"})
	require.NoError(t, err)
	require.NoError(t, s.SaveRow([]string{"1", "4"}))
	require.NoError(t, s.Flush())
	assert.Equal(t, [][]string{{"iter", "value"}, {"1", "4"}}, readCSV(t, first))

	// nil header keeps the previous one
	require.NoError(t, s.Reset(second, nil))
	assert.Equal(t, second, s.Path())
	require.NoError(t, s.SaveRow([]string{"2", "9"}))
	require.NoError(t, s.Close())
	assert.Equal(t, [][]string{{"iter", "value"}, {"2", "9"}}, readCSV(t, second))

	// empty header writes none
	require.NoError(t, s.Reset(first, []string{}))
	require.NoError(t, s.SaveRow([]string{"3", "1"}))
	require.NoError(t, s.Close())
	assert.Equal(t, [][]string{{"3", "1"}}, readCSV(t, first))
}

func TestCSVSaverWithoutFile(t *testing.T) {
	s, err := NewCSVSaver("", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SaveRow([]string{"x"}), ErrNoFile)
	assert.NoError(t, s.Flush())
	assert.NoError(t, s.Close())
}

func TestInsightStartsFilePerProblem(t *testing.T) {
	dir := t.TempDir()
	in := NewInsight[problem, solution](dir, knapsack.CSVHeader())
	p0, p1 := instance(t, 0), instance(t, 1)
	best := evaluated(t, p0, true, true, false)

	for i := 1; i <= 3; i++ {
		require.NoError(t, in.Observe(snapshot{Iteration: i, Problem: p0, Best: best, Current: best}))
	}
	require.NoError(t, in.Observe(snapshot{Iteration: 3, Problem: p0, Terminal: true}))

	for i := 1; i <= 2; i++ {
		require.NoError(t, in.Observe(snapshot{Iteration: i, Problem: p1, Best: best, Current: best}))
	}
	require.NoError(t, in.Observe(snapshot{Iteration: 2, Problem: p1, Terminal: true}))
	require.NoError(t, in.Close())

	rows := readCSV(t, filepath.Join(dir, "0.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, knapsack.CSVHeader(), rows[0])
	assert.Equal(t, []string{"2", "9", "0", "true"}, rows[2])

	rows = readCSV(t, filepath.Join(dir, "1.csv"))
	assert.Len(t, rows, 3)
	assert.Equal(t, filepath.Join(dir, "1.csv"), in.Path())
}

func TestInsightWithoutProblemWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := NewInsight[problem, solution](dir, knapsack.CSVHeader())

	require.NoError(t, in.Observe(snapshot{Terminal: true}))
	require.NoError(t, in.Close())
	assert.Empty(t, in.Path())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type memorySink struct {
	entries []store.TraceEntry
	flushes int
	err     error
}

func (m *memorySink) Write(e store.TraceEntry) error {
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memorySink) Flush() error {
	m.flushes++
	return nil
}

func TestTraceObserver(t *testing.T) {
	sink := &memorySink{}
	tr := NewTrace[problem, solution](sink)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	p := instance(t, 0)
	cur := evaluated(t, p, true, true, true)

	require.NoError(t, tr.Observe(snapshot{Iteration: 1, Problem: p, Best: cur, Current: cur, BestScore: 7, Temperature: 50}))
	require.NoError(t, tr.Observe(snapshot{Iteration: 1, Problem: p, Terminal: true}))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, store.TraceEntry{
		Iteration:   1,
		BestScore:   7,
		Value:       10,
		Penalty:     -3,
		Feasible:    false,
		Temperature: 50,
		Timestamp:   fixed,
	}, sink.entries[0])
	assert.Equal(t, 1, sink.flushes)
}

func TestTraceObserverWithStore(t *testing.T) {
	dir := t.TempDir()
	tw, err := store.NewTraceWriter(dir, "run-1", false)
	require.NoError(t, err)
	defer tw.Close()

	tr := NewTrace[problem, solution](tw)
	p := instance(t, 0)
	cur := evaluated(t, p, true, false, false)
	for i := 1; i <= 4; i++ {
		require.NoError(t, tr.Observe(snapshot{Iteration: i, Problem: p, Best: cur, Current: cur, BestScore: 4}))
	}
	require.NoError(t, tr.Observe(snapshot{Iteration: 4, Problem: p, Terminal: true}))

	entries, err := store.ReadTrace(dir, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.True(t, entries[3].Feasible)
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	obs := MetricsObserver[problem, solution](m, "annealing")

	p := instance(t, 0)
	ok := evaluated(t, p, true, false, false)
	bad := evaluated(t, p, true, true, true)

	require.NoError(t, obs.Observe(snapshot{Iteration: 1, Problem: p, Best: ok, Current: bad, BestScore: 4, Temperature: 10}))
	require.NoError(t, obs.Observe(snapshot{Iteration: 2, Problem: p, Best: ok, Current: ok, BestScore: 9, Temperature: 5}))
	require.NoError(t, obs.Observe(snapshot{Iteration: 2, Problem: p, Terminal: true}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Iterations.WithLabelValues("annealing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Solves.WithLabelValues("annealing")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.BestScore.WithLabelValues("annealing")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Temperature.WithLabelValues("annealing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Infeasible.WithLabelValues("annealing")))

	count, err := testutil.GatherAndCount(reg, "optima_iterations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProgressRateLimits(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	pr := NewProgress[problem, solution](logger, "genetic", time.Hour)
	p := instance(t, 0)

	for i := 1; i <= 100; i++ {
		require.NoError(t, pr.Observe(snapshot{Iteration: i, Problem: p, BestScore: float64(i)}))
	}
	require.NoError(t, pr.Observe(snapshot{Iteration: 100, Problem: p, BestScore: 100, Terminal: true}))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Optimization progress"))
	assert.Equal(t, 1, strings.Count(out, "Solve finished"))
	assert.Contains(t, out, "iterations=100")
}

func TestProgressEveryIteration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	pr := NewProgress[problem, solution](logger, "annealing", 0)
	p := instance(t, 0)

	for i := 1; i <= 5; i++ {
		require.NoError(t, pr.Observe(snapshot{Iteration: i, Problem: p, Temperature: 1}))
	}
	assert.Equal(t, 5, strings.Count(buf.String(), "Optimization progress"))
	assert.Contains(t, buf.String(), "temperature=1")
}

func TestFanOutKeepsGoingOnSinkFailure(t *testing.T) {
	failing := &memorySink{err: errors.New("disk full")}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	obs := opt.Observers[problem, solution](
		NewTrace[problem, solution](failing),
		MetricsObserver[problem, solution](m, "annealing"),
	)

	p := instance(t, 0)
	cur := evaluated(t, p, true, false, false)
	err := obs.Observe(snapshot{Iteration: 1, Problem: p, Best: cur, Current: cur, BestScore: 4})

	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Iterations.WithLabelValues("annealing")))
}
