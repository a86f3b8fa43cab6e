package search

import (
	"context"
	"math/rand/v2"
)

// DefaultCandidateCount is the result limit used when the caller does not set one
const DefaultCandidateCount = 10

// Result is the resolved download URL for one clip
type Result struct {
	URL   string
	Query string
}

// Searcher resolves a query to a single randomly chosen clip
type Searcher interface {
	Search(ctx context.Context, query string, candidateCount int) (Result, error)
}

// PoolSize returns how many leading results are eligible for selection
func PoolSize(candidateCount, resultCount int) int {
	if candidateCount <= 0 {
		candidateCount = DefaultCandidateCount
	}
	return min(candidateCount, resultCount)
}

// PickIndex chooses uniformly among the first PoolSize results.
// It returns NoResultsError when the pool is empty.
func PickIndex(rng *rand.Rand, query string, candidateCount, resultCount int) (int, error) {
	pool := PoolSize(candidateCount, resultCount)
	if pool <= 0 {
		return 0, &NoResultsError{Query: query}
	}
	if rng == nil {
		return rand.IntN(pool), nil
	}
	return rng.IntN(pool), nil
}
