package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/orchestrator"
	"github.com/bebo-assistant/backend/pkg/logger"
)

type WebSocketHandler struct {
	orchestrator *orchestrator.Orchestrator
}

func NewWebSocketHandler(orch *orchestrator.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator: orch,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			UserID    string `json:"user_id"`
			SessionID string `json:"session_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "question" {
			continue
		}

		logger.Info("Processing WebSocket question", zap.String("user_id", msg.UserID))

		err = h.streamResponse(c, msg.Content, msg.UserID, msg.SessionID)
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process question")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, question, userID, sessionID string) error {
	ctx := context.Background()

	h.sendChunk(c, "status", "Đang xử lý câu hỏi...")

	response := h.orchestrator.Handle(ctx, orchestrator.Request{
		Question:  question,
		UserID:    userID,
		SessionID: sessionID,
	})

	words := splitIntoWords(response.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, response)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, response orchestrator.Response) error {
	msg := map[string]interface{}{
		"type":         "complete",
		"service_name": response.ServiceName,
		"top_parents":  response.TopParents,
		"top_childs":   response.TopChilds,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
