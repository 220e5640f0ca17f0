package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/memory"
	"github.com/bebo-assistant/backend/internal/orchestrator"
	"github.com/bebo-assistant/backend/pkg/logger"
)

type QueryHandler struct {
	orchestrator *orchestrator.Orchestrator
	memoryStore  *memory.Store
}

func NewQueryHandler(orch *orchestrator.Orchestrator, memoryStore *memory.Store) *QueryHandler {
	return &QueryHandler{
		orchestrator: orch,
		memoryStore:  memoryStore,
	}
}

// HandleQuery answers one chatbot question. An empty question is a valid
// request and resolves to the welcome payload, so there is no required-field
// check on it.
func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Question  string `json:"question"`
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	response := h.orchestrator.Handle(c.Context(), orchestrator.Request{
		Question:  req.Question,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})

	return c.JSON(response)
}

func (h *QueryHandler) GetHistory(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	limit := c.QueryInt("limit", 10)
	sessionID := c.Query("session_id")

	records, err := h.memoryStore.History(c.Context(), userID, limit, sessionID)
	if err != nil {
		logger.Error("Failed to load interaction history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	history := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		history = append(history, fiber.Map{
			"id":           r.ID,
			"question":     r.Question,
			"answer":       r.Answer,
			"context_type": r.ContextType,
			"session_id":   r.SessionID,
			"timestamp":    r.Timestamp,
		})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"history": history,
	})
}

func (h *QueryHandler) GetPopularQuestions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	windowDays := c.QueryInt("window_days", 7)

	popular, err := h.memoryStore.Popular(c.Context(), limit, windowDays)
	if err != nil {
		logger.Error("Failed to load popular questions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load popular questions",
		})
	}

	questions := make([]fiber.Map, 0, len(popular))
	for _, p := range popular {
		questions = append(questions, fiber.Map{
			"question":     p.Question,
			"count":        p.Count,
			"context_type": p.ContextType,
			"last_answer":  p.LastAnswer,
		})
	}

	return c.JSON(fiber.Map{
		"popular": questions,
	})
}
