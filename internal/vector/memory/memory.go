// Package memory provides a brute-force in-memory vector index used by
// tests and local development where no Milvus deployment is available.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bebo-assistant/backend/internal/vector"
)

type Index struct {
	mu     sync.RWMutex
	points []vector.Point
	byID   map[string]int
}

func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

func (idx *Index) Upsert(ctx context.Context, points []vector.Point) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, p := range points {
		if i, ok := idx.byID[p.ID]; ok {
			idx.points[i] = p
			continue
		}
		idx.byID[p.ID] = len(idx.points)
		idx.points = append(idx.points, p)
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, k int, filters map[string]string) ([]vector.Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}

	matches := make([]vector.Match, 0, len(idx.points))
	for _, p := range idx.points {
		if !matchesFilters(p.Payload, filters) {
			continue
		}
		matches = append(matches, vector.Match{
			Payload: p.Payload,
			Score:   cosine(queryVector, p.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (idx *Index) Scan(ctx context.Context, filters map[string]string, since time.Time, limit int) ([]vector.Payload, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []vector.Payload
	for _, p := range idx.points {
		if !matchesFilters(p.Payload, filters) {
			continue
		}
		if !since.IsZero() && p.Payload.Timestamp().Before(since) {
			continue
		}
		out = append(out, p.Payload)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesFilters(payload vector.Payload, filters map[string]string) bool {
	for key, want := range filters {
		if payload.String(key) != want {
			return false
		}
	}
	return true
}

// cosine computes true cosine similarity; stored vectors are not assumed
// to be L2-normalized.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
