// Package milvus implements vector.Index on a Milvus collection. One client
// type serves every domain; the collection name is fixed at construction.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/vector"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// Scalar columns promoted out of the payload so Milvus can filter on them.
var filterColumns = []string{"user_id", "session_id", "context_type"}

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewClient(context.Background(), client.Config{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "assistant entity embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "payload",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16384",
				},
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "session_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "context_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "timestamp",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}

	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Upsert(ctx context.Context, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]string, len(points))
	embeddings := make([][]float32, len(points))
	payloads := make([]string, len(points))
	userIDs := make([]string, len(points))
	sessionIDs := make([]string, len(points))
	contextTypes := make([]string, len(points))
	timestamps := make([]int64, len(points))

	for i, p := range points {
		data, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}

		ids[i] = p.ID
		embeddings[i] = p.Vector
		payloads[i] = string(data)
		userIDs[i] = p.Payload.String("user_id")
		sessionIDs[i] = p.Payload.String("session_id")
		contextTypes[i] = p.Payload.String("context_type")
		if ts := p.Payload.Timestamp(); !ts.IsZero() {
			timestamps[i] = ts.Unix()
		}
	}

	_, err := m.client.Upsert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("payload", payloads),
		entity.NewColumnVarChar("user_id", userIDs),
		entity.NewColumnVarChar("session_id", sessionIDs),
		entity.NewColumnVarChar("context_type", contextTypes),
		entity.NewColumnInt64("timestamp", timestamps),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.Debug("Points upserted",
		zap.String("collection", m.collectionName),
		zap.Int("count", len(points)),
	)

	return nil
}

func (m *Client) Search(ctx context.Context, queryVector []float32, k int, filters map[string]string) ([]vector.Match, error) {
	expr := buildExpr(filters, time.Time{})

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"payload"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"embedding",
		entity.COSINE,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]vector.Match, 0, k)
	for _, sr := range searchResult {
		payloadCol := sr.Fields.GetColumn("payload")
		if payloadCol == nil {
			continue
		}
		for i := 0; i < sr.ResultCount; i++ {
			raw, err := payloadCol.Get(i)
			if err != nil {
				continue
			}
			payload := decodePayload(raw)
			if payload == nil {
				continue
			}
			matches = append(matches, vector.Match{
				Payload: payload,
				Score:   sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.String("collection", m.collectionName),
		zap.Int("k", k),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

func (m *Client) Scan(ctx context.Context, filters map[string]string, since time.Time, limit int) ([]vector.Payload, error) {
	expr := buildExpr(filters, since)
	if expr == "" {
		expr = "timestamp >= 0"
	}

	opts := []client.SearchQueryOptionFunc{}
	if limit > 0 {
		opts = append(opts, client.WithLimit(int64(limit)))
	}

	resultSet, err := m.client.Query(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"payload"},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	var payloads []vector.Payload
	payloadCol := resultSet.GetColumn("payload")
	if payloadCol == nil {
		return payloads, nil
	}

	for i := 0; i < payloadCol.Len(); i++ {
		raw, err := payloadCol.Get(i)
		if err != nil {
			continue
		}
		if payload := decodePayload(raw); payload != nil {
			payloads = append(payloads, payload)
		}
	}

	return payloads, nil
}

func buildExpr(filters map[string]string, since time.Time) string {
	var conditions []string
	for _, col := range filterColumns {
		if val, ok := filters[col]; ok && val != "" {
			conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, col, escape(val)))
		}
	}
	if !since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("timestamp >= %d", since.Unix()))
	}
	return strings.Join(conditions, " && ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func decodePayload(raw interface{}) vector.Payload {
	str, ok := raw.(string)
	if !ok {
		return nil
	}

	var payload vector.Payload
	if err := json.Unmarshal([]byte(str), &payload); err != nil {
		logger.Warn("Failed to decode payload", zap.Error(err))
		return nil
	}
	return payload
}
