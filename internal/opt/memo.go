package opt

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memo caches a pure value or penalty function keyed by a caller-supplied key.
// The key must identify both the problem and the candidate payload.
type Memo[P Problem, S any, K comparable] struct {
	fn     func(P, S) float64
	key    func(P, S) K
	cache  *lru.Cache[K, float64]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemo wraps fn with an LRU cache holding up to size results.
func NewMemo[P Problem, S any, K comparable](fn func(P, S) float64, key func(P, S) K, size int) (*Memo[P, S, K], error) {
	if fn == nil || key == nil {
		return nil, &ConfigError{Field: "memo", Reason: "function and key cannot be nil"}
	}
	cache, err := lru.New[K, float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation cache: %w", err)
	}
	return &Memo[P, S, K]{fn: fn, key: key, cache: cache}, nil
}

// Call returns the cached result for (problem, solution) or computes and stores it.
func (m *Memo[P, S, K]) Call(problem P, solution S) float64 {
	k := m.key(problem, solution)
	if v, ok := m.cache.Get(k); ok {
		m.hits.Add(1)
		return v
	}
	m.misses.Add(1)
	v := m.fn(problem, solution)
	m.cache.Add(k, v)
	return v
}

// Stats returns the number of cache hits and misses so far.
func (m *Memo[P, S, K]) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Purge drops every cached result.
func (m *Memo[P, S, K]) Purge() {
	m.cache.Purge()
}
