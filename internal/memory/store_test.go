package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebo-assistant/backend/internal/vector"
	vecmem "github.com/bebo-assistant/backend/internal/vector/memory"
)

type stubEmbedder struct {
	vectors map[string][]float32
	failOn  string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.failOn != "" && text == s.failOn {
		return nil, errors.New("embedding unavailable")
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func TestAppendThenNearest(t *testing.T) {
	idx := vecmem.NewIndex()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"quán hải sản nào ngon?": {1, 0, 0},
		"khách sạn gần biển":     {0, 1, 0},
	}}
	store := NewStore(idx, embedder, 3)
	ctx := context.Background()

	id1, err := store.Append(ctx, "u1", "quán hải sản nào ngon?", "Quán Biển Xanh ạ", "restaurant", "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, id1)

	_, err = store.Append(ctx, "u1", "khách sạn gần biển", "Khách sạn Hòa Bình ạ", "accommodation", "s1")
	require.NoError(t, err)

	records, err := store.Nearest(ctx, "quán hải sản nào ngon?", 2, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, id1, records[0].ID)
	assert.Equal(t, "quán hải sản nào ngon?", records[0].Question)
	assert.Equal(t, "Quán Biển Xanh ạ", records[0].Answer)
	assert.InDelta(t, 1.0, float64(records[0].Score), 1e-6)
	assert.Greater(t, records[0].Score, records[1].Score)
}

func TestNearestFiltersByUser(t *testing.T) {
	idx := vecmem.NewIndex()
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	store := NewStore(idx, embedder, 3)
	ctx := context.Background()

	_, err := store.Append(ctx, "u1", "q", "answer for u1", "general", "")
	require.NoError(t, err)
	_, err = store.Append(ctx, "u2", "q", "answer for u2", "general", "")
	require.NoError(t, err)

	records, err := store.Nearest(ctx, "q", 10, "u2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "u2", records[0].UserID)
}

func TestAppendKeepsRecordOnEmbedFailure(t *testing.T) {
	idx := vecmem.NewIndex()
	embedder := &stubEmbedder{failOn: "câu hỏi lỗi"}
	store := NewStore(idx, embedder, 3)
	ctx := context.Background()

	id, err := store.Append(ctx, "u1", "câu hỏi lỗi", "vẫn có trả lời", "general", "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// Unfindable by similarity but still present in history.
	records, err := store.History(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "câu hỏi lỗi", records[0].Question)
	assert.Equal(t, id, records[0].ID)
}

func TestHistoryCarriesRecordIDs(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)
	ctx := context.Background()

	id, err := store.Append(ctx, "u1", "q", "a", "general", "s1")
	require.NoError(t, err)

	records, err := store.History(ctx, "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
}

func TestAppendGeneratesSessionID(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)

	_, err := store.Append(context.Background(), "u1", "q", "a", "general", "")
	require.NoError(t, err)

	records, err := store.History(context.Background(), "u1", 10, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].SessionID)
}

func seedRecord(t *testing.T, idx vector.Index, userID, sessionID, question, answer, contextType string, ts time.Time) {
	t.Helper()
	err := idx.Upsert(context.Background(), []vector.Point{{
		ID:     uuid.New().String(),
		Vector: []float32{0, 0, 1},
		Payload: vector.Payload{
			"user_id":      userID,
			"session_id":   sessionID,
			"question":     question,
			"answer":       answer,
			"context_type": contextType,
			"timestamp":    ts.UTC().Format(time.RFC3339),
		},
	}})
	require.NoError(t, err)
}

func TestHistoryNewestFirstTruncated(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)
	now := time.Now().UTC()

	seedRecord(t, idx, "u1", "s1", "first", "a1", "general", now.Add(-3*time.Hour))
	seedRecord(t, idx, "u1", "s1", "second", "a2", "general", now.Add(-2*time.Hour))
	seedRecord(t, idx, "u1", "s1", "third", "a3", "general", now.Add(-1*time.Hour))
	seedRecord(t, idx, "u2", "s2", "other user", "a4", "general", now)

	records, err := store.History(context.Background(), "u1", 2, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "third", records[0].Question)
	assert.Equal(t, "second", records[1].Question)
	assert.True(t, records[0].Timestamp.After(records[1].Timestamp))
}

func TestHistoryFiltersBySession(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)
	now := time.Now().UTC()

	seedRecord(t, idx, "u1", "s1", "in session", "a", "general", now)
	seedRecord(t, idx, "u1", "s2", "other session", "a", "general", now)

	records, err := store.History(context.Background(), "u1", 10, "s1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "in session", records[0].Question)
}

func TestPopularGroupsCaseInsensitive(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)
	now := time.Now().UTC()

	seedRecord(t, idx, "u1", "s1", "Giao hàng mất bao lâu?", "khoảng 1 giờ ạ", "delivery", now.Add(-2*time.Hour))
	seedRecord(t, idx, "u2", "s2", "giao hàng mất bao lâu?", "tầm 45 phút ạ", "delivery", now.Add(-1*time.Hour))
	seedRecord(t, idx, "u3", "s3", "GIAO HÀNG MẤT BAO LÂU?", "30 phút thôi ạ", "delivery", now)
	seedRecord(t, idx, "u1", "s1", "khách sạn gần biển", "dạ có ạ", "accommodation", now)

	popular, err := store.Popular(context.Background(), 10, 7)
	require.NoError(t, err)
	require.Len(t, popular, 2)

	assert.Equal(t, 3, popular[0].Count)
	assert.Equal(t, "30 phút thôi ạ", popular[0].LastAnswer)
	assert.Equal(t, "delivery", popular[0].ContextType)
	assert.Equal(t, 1, popular[1].Count)
}

func TestPopularExcludesOutsideWindow(t *testing.T) {
	idx := vecmem.NewIndex()
	store := NewStore(idx, &stubEmbedder{}, 3)
	now := time.Now().UTC()

	seedRecord(t, idx, "u1", "s1", "câu hỏi cũ", "a", "general", now.AddDate(0, 0, -30))
	seedRecord(t, idx, "u1", "s1", "câu hỏi mới", "a", "general", now)

	popular, err := store.Popular(context.Background(), 10, 7)
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, "câu hỏi mới", popular[0].Question)
}
