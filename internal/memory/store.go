// Package memory implements the append-only interaction log: every served
// Q&A pair is written once with an embedding of the question, then reused
// for similarity lookup and coarse analytics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/vector"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// popularSampleSize bounds how many recent records Popular inspects.
const popularSampleSize = 1000

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Record struct {
	ID          string
	UserID      string
	SessionID   string
	Question    string
	Answer      string
	ContextType string
	Timestamp   time.Time
	Score       float32
}

type PopularQuestion struct {
	Question    string
	Count       int
	ContextType string
	LastAnswer  string
}

type Store struct {
	index     vector.Index
	embedder  Embedder
	vectorDim int
}

func NewStore(index vector.Index, embedder Embedder, vectorDim int) *Store {
	return &Store{
		index:     index,
		embedder:  embedder,
		vectorDim: vectorDim,
	}
}

// Append writes one immutable record under a fresh id. A missing session id
// is generated. An embedding failure degrades to a zero vector so the
// record is still kept for history and analytics, just unfindable by
// similarity.
func (s *Store) Append(ctx context.Context, userID, question, answer, contextType, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		logger.Warn("Failed to embed question, storing zero vector", zap.Error(err))
		embedding = make([]float32, s.vectorDim)
	}

	recordID := uuid.New().String()
	payload := vector.Payload{
		"id":           recordID,
		"user_id":      userID,
		"session_id":   sessionID,
		"question":     question,
		"answer":       answer,
		"context_type": contextType,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	err = s.index.Upsert(ctx, []vector.Point{{
		ID:      recordID,
		Vector:  embedding,
		Payload: payload,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to store interaction: %w", err)
	}

	logger.Info("Interaction stored",
		zap.String("record_id", recordID),
		zap.String("user_id", userID),
		zap.String("context_type", contextType),
	)

	return recordID, nil
}

// Nearest returns up to k stored interactions ranked by similarity of their
// question to the given one, optionally restricted to a single user.
func (s *Store) Nearest(ctx context.Context, question string, k int, userID string) ([]Record, error) {
	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	filters := map[string]string{}
	if userID != "" {
		filters["user_id"] = userID
	}

	matches, err := s.index.Search(ctx, embedding, k, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search interactions: %w", err)
	}

	records := make([]Record, 0, len(matches))
	for _, m := range matches {
		r := recordFromPayload(m.Payload)
		r.Score = m.Score
		records = append(records, r)
	}
	return records, nil
}

// History is an exact-match filtered scan, newest first, never a similarity
// search.
func (s *Store) History(ctx context.Context, userID string, k int, sessionID string) ([]Record, error) {
	filters := map[string]string{"user_id": userID}
	if sessionID != "" {
		filters["session_id"] = sessionID
	}

	payloads, err := s.index.Scan(ctx, filters, time.Time{}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to scan interactions: %w", err)
	}

	records := make([]Record, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, recordFromPayload(p))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if k > 0 && len(records) > k {
		records = records[:k]
	}
	return records, nil
}

// Popular samples up to 1000 recent records within the window and counts
// exact (case-insensitive) question text. This is coarse frequency
// counting: paraphrases of the same question land in separate groups.
func (s *Store) Popular(ctx context.Context, k, windowDays int) ([]PopularQuestion, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	payloads, err := s.index.Scan(ctx, nil, since, popularSampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to scan interactions: %w", err)
	}

	type group struct {
		question    string
		count       int
		contextType string
		lastAnswer  string
		lastSeen    time.Time
	}

	groups := make(map[string]*group)
	for _, p := range payloads {
		r := recordFromPayload(p)
		key := strings.ToLower(r.Question)

		g, ok := groups[key]
		if !ok {
			g = &group{question: r.Question}
			groups[key] = g
		}
		g.count++
		if r.Timestamp.After(g.lastSeen) || g.lastSeen.IsZero() {
			g.lastSeen = r.Timestamp
			g.contextType = r.ContextType
			g.lastAnswer = r.Answer
		}
	}

	popular := make([]PopularQuestion, 0, len(groups))
	for _, g := range groups {
		popular = append(popular, PopularQuestion{
			Question:    g.question,
			Count:       g.count,
			ContextType: g.contextType,
			LastAnswer:  g.lastAnswer,
		})
	}

	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].Count > popular[j].Count
	})

	if k > 0 && len(popular) > k {
		popular = popular[:k]
	}
	return popular, nil
}

func recordFromPayload(p vector.Payload) Record {
	return Record{
		ID:          p.String("id"),
		UserID:      p.String("user_id"),
		SessionID:   p.String("session_id"),
		Question:    p.String("question"),
		Answer:      p.String("answer"),
		ContextType: p.String("context_type"),
		Timestamp:   p.Timestamp(),
	}
}
