package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/storage/models"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// RequestLogReader reads the request analytics trail.
type RequestLogReader interface {
	GetRecentRequests(userID string, limit int) ([]models.RequestLog, error)
}

type AnalyticsHandler struct {
	requests RequestLogReader
}

func NewAnalyticsHandler(requests RequestLogReader) *AnalyticsHandler {
	return &AnalyticsHandler{requests: requests}
}

// GetRecentRequests returns a user's latest answered questions with the
// routing telemetry recorded for each (service, confidence, strategy,
// latency).
func (h *AnalyticsHandler) GetRecentRequests(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)

	records, err := h.requests.GetRecentRequests(userID, limit)
	if err != nil {
		logger.Error("Failed to load request log", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load request log",
		})
	}

	requests := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		requests = append(requests, fiber.Map{
			"id":            r.ID,
			"question":      r.Question,
			"answer":        r.Answer,
			"service_name":  r.ServiceName,
			"context_label": r.ContextLabel,
			"confidence":    r.Confidence,
			"strategy":      r.Strategy,
			"latency_ms":    r.LatencyMS,
			"created_at":    r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"user_id":  userID,
		"requests": requests,
	})
}
