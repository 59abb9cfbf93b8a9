package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/service"
	"github.com/rs/zerolog"
)

// ChatHandlers contains HTTP handlers for the AI-chat proxy.
type ChatHandlers struct {
	chatService *service.ChatService
	log         zerolog.Logger
}

// NewChatHandlers creates new chat handlers.
func NewChatHandlers(chatService *service.ChatService, log zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
		log:         log,
	}
}

type chatRequest struct {
	Messages          []core.ChatMessage      `json:"messages" binding:"required"`
	PatientContext    core.PatientContext     `json:"patientContext"`
	PredictionContext *core.PredictionContext `json:"predictionContext"`
}

type deltaFrame struct {
	Delta string `json:"delta"`
}

// Chat handles a chat request and republishes the upstream deltas as an
// incremental event-stream response.
func (h *ChatHandlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	exchange := core.NewExchange(req.Messages)

	deltas, errs, err := h.chatService.Send(c.Request.Context(), exchange, req.PatientContext, req.PredictionContext)
	if err != nil {
		// Each upstream failure kind gets its own status so the client can
		// present different messaging.
		switch {
		case errors.Is(err, core.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later."})
		case errors.Is(err, core.ErrQuotaExhausted):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "AI usage limit reached. Please add credits."})
		case errors.Is(err, core.ErrTransport):
			c.JSON(http.StatusBadGateway, gin.H{"error": "AI service unreachable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "AI service error"})
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	writeFrame := func(payload []byte) {
		_, _ = c.Writer.Write([]byte("data: "))
		_, _ = c.Writer.Write(payload)
		_, _ = c.Writer.Write([]byte("\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
	}

	for deltas != nil || errs != nil {
		select {
		case delta, ok := <-deltas:
			if !ok {
				deltas = nil
				continue
			}
			payload, err := json.Marshal(deltaFrame{Delta: delta})
			if err != nil {
				continue
			}
			writeFrame(payload)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Headers are already sent; all we can do is log and stop.
			h.log.Error().Err(err).Msg("chat stream failed mid-flight")
			return
		}
	}

	writeFrame([]byte("[DONE]"))
}
