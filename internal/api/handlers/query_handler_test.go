package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebo-assistant/backend/internal/classifier"
	"github.com/bebo-assistant/backend/internal/fallback"
	"github.com/bebo-assistant/backend/internal/memory"
	"github.com/bebo-assistant/backend/internal/orchestrator"
	"github.com/bebo-assistant/backend/internal/prompts"
	vecmem "github.com/bebo-assistant/backend/internal/vector/memory"
)

type stubClassifier struct {
	result classifier.Classification
}

func (s *stubClassifier) Classify(ctx context.Context, text string) classifier.Classification {
	return s.result
}

type stubFallback struct {
	result fallback.Result
}

func (s *stubFallback) Resolve(ctx context.Context, question, contextType string) fallback.Result {
	return s.result
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()

	tmpl := prompts.New("Bé Bơ", "https://example.vn/")
	orch := orchestrator.New(orchestrator.Options{
		Classifier: &stubClassifier{result: classifier.Classification{PrimaryLabel: "general", Confidence: 1.0}},
		Fallback:   &stubFallback{result: fallback.Result{Answer: "câu trả lời chung", Strategy: fallback.StrategyStatic}},
		Templates:  tmpl,
	})

	store := memory.NewStore(vecmem.NewIndex(), stubEmbedder{}, 3)

	handler := NewQueryHandler(orch, store)

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/chatbot-query", handler.HandleQuery)
	api.Get("/memory/history", handler.GetHistory)
	api.Get("/memory/popular", handler.GetPopularQuestions)

	return app, store
}

func TestHandleQueryEmptyQuestionIsWelcome(t *testing.T) {
	app, _ := newTestApp(t)

	body := bytes.NewBufferString(`{"question": "", "user_id": "u1"}`)
	req := httptest.NewRequest("POST", "/api/v1/chatbot-query", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Answer      string `json:"answer"`
		ServiceName string `json:"service_name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	assert.Equal(t, "welcome", payload.ServiceName)
	assert.Contains(t, payload.Answer, "Bé Bơ")
}

func TestHandleQueryReturnsAnswer(t *testing.T) {
	app, _ := newTestApp(t)

	body := bytes.NewBufferString(`{"question": "xin chào", "user_id": "u1"}`)
	req := httptest.NewRequest("POST", "/api/v1/chatbot-query", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Answer      string        `json:"answer"`
		ServiceName string        `json:"service_name"`
		TopParents  []interface{} `json:"top_parents"`
		TopChilds   []interface{} `json:"top_childs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	assert.Equal(t, "câu trả lời chung", payload.Answer)
	assert.Equal(t, "general", payload.ServiceName)
	assert.NotNil(t, payload.TopParents)
	assert.NotNil(t, payload.TopChilds)
}

func TestHandleQueryRejectsMalformedBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/api/v1/chatbot-query", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetHistoryRequiresUserID(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/v1/memory/history", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetHistoryReturnsStoredInteractions(t *testing.T) {
	app, store := newTestApp(t)

	_, err := store.Append(context.Background(), "u1", "câu hỏi cũ", "trả lời cũ", "general", "s1")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/memory/history?user_id=u1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		UserID  string `json:"user_id"`
		History []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	assert.Equal(t, "u1", payload.UserID)
	require.Len(t, payload.History, 1)
	assert.Equal(t, "câu hỏi cũ", payload.History[0].Question)
}

func TestGetPopularQuestions(t *testing.T) {
	app, store := newTestApp(t)

	for _, user := range []string{"u1", "u2"} {
		_, err := store.Append(context.Background(), user, "giao hàng mất bao lâu?", "1 giờ ạ", "delivery", "")
		require.NoError(t, err)
	}

	req := httptest.NewRequest("GET", "/api/v1/memory/popular?limit=5", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Popular []struct {
			Question string `json:"question"`
			Count    int    `json:"count"`
		} `json:"popular"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	require.Len(t, payload.Popular, 1)
	assert.Equal(t, 2, payload.Popular[0].Count)
}
