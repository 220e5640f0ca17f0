package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebo-assistant/backend/internal/vector"
)

func TestSearchRanksByCosine(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	err := idx.Upsert(ctx, []vector.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: vector.Payload{"name": "a"}},
		{ID: "b", Vector: []float32{0.7, 0.7}, Payload: vector.Payload{"name": "b"}},
		{ID: "c", Vector: []float32{0, 1}, Payload: vector.Payload{"name": "c"}},
	})
	require.NoError(t, err)

	matches, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a", matches[0].Payload.String("name"))
	assert.Equal(t, "b", matches[1].Payload.String("name"))
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-6)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchFilters(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vector.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: vector.Payload{"user_id": "u1"}},
		{ID: "b", Vector: []float32{1, 0}, Payload: vector.Payload{"user_id": "u2"}},
	}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 10, map[string]string{"user_id": "u2"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "u2", matches[0].Payload.String("user_id"))
}

func TestUpsertReplacesByID(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vector.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: vector.Payload{"version": "old"}},
	}))
	require.NoError(t, idx.Upsert(ctx, []vector.Point{
		{ID: "a", Vector: []float32{1, 0}, Payload: vector.Payload{"version": "new"}},
	}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Payload.String("version"))
}

func TestScanSinceAndLimit(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, idx.Upsert(ctx, []vector.Point{
		{ID: "old", Vector: []float32{1}, Payload: vector.Payload{
			"timestamp": now.AddDate(0, 0, -30).Format(time.RFC3339),
		}},
		{ID: "recent1", Vector: []float32{1}, Payload: vector.Payload{
			"timestamp": now.AddDate(0, 0, -1).Format(time.RFC3339),
		}},
		{ID: "recent2", Vector: []float32{1}, Payload: vector.Payload{
			"timestamp": now.Format(time.RFC3339),
		}},
	}))

	payloads, err := idx.Scan(ctx, nil, now.AddDate(0, 0, -7), 0)
	require.NoError(t, err)
	assert.Len(t, payloads, 2)

	payloads, err = idx.Scan(ctx, nil, now.AddDate(0, 0, -7), 1)
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
}

func TestSearchZeroVectorScoresZero(t *testing.T) {
	idx := NewIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []vector.Point{
		{ID: "zero", Vector: []float32{0, 0}, Payload: vector.Payload{"name": "zero"}},
		{ID: "unit", Vector: []float32{1, 0}, Payload: vector.Payload{"name": "unit"}},
	}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "unit", matches[0].Payload.String("name"))
	assert.Equal(t, float32(0), matches[1].Score)
}
