package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebo-assistant/backend/internal/storage/models"
)

type stubRequestLogReader struct {
	records []models.RequestLog
	err     error
}

func (s *stubRequestLogReader) GetRecentRequests(userID string, limit int) ([]models.RequestLog, error) {
	return s.records, s.err
}

func newAnalyticsApp(reader RequestLogReader) *fiber.App {
	app := fiber.New()
	app.Get("/api/v1/analytics/recent", NewAnalyticsHandler(reader).GetRecentRequests)
	return app
}

func TestGetRecentRequestsRequiresUserID(t *testing.T) {
	app := newAnalyticsApp(&stubRequestLogReader{})

	req := httptest.NewRequest("GET", "/api/v1/analytics/recent", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetRecentRequestsReturnsTelemetry(t *testing.T) {
	app := newAnalyticsApp(&stubRequestLogReader{records: []models.RequestLog{{
		ID:           "req-1",
		UserID:       "u1",
		Question:     "bên mình có giao hàng không?",
		Answer:       "Dạ có ạ",
		ServiceName:  "delivery",
		ContextLabel: "delivery",
		Confidence:   0.9,
		Strategy:     "domain",
		LatencyMS:    120,
		CreatedAt:    time.Now().UTC(),
	}}})

	req := httptest.NewRequest("GET", "/api/v1/analytics/recent?user_id=u1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		UserID   string `json:"user_id"`
		Requests []struct {
			ID          string  `json:"id"`
			ServiceName string  `json:"service_name"`
			Confidence  float64 `json:"confidence"`
			Strategy    string  `json:"strategy"`
		} `json:"requests"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	assert.Equal(t, "u1", payload.UserID)
	require.Len(t, payload.Requests, 1)
	assert.Equal(t, "req-1", payload.Requests[0].ID)
	assert.Equal(t, "delivery", payload.Requests[0].ServiceName)
	assert.Equal(t, "domain", payload.Requests[0].Strategy)
}

func TestGetRecentRequestsStorageFailure(t *testing.T) {
	app := newAnalyticsApp(&stubRequestLogReader{err: errors.New("db locked")})

	req := httptest.NewRequest("GET", "/api/v1/analytics/recent?user_id=u1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
