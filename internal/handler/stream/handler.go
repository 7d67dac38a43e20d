package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	chatservice "github.com/healthdesk/assistant/internal/service/chat"
	"github.com/healthdesk/assistant/pkg/utils"
)

// Handler streams assistant replies via Server-Sent Events. Canned replies
// arrive as a single message event; generated replies arrive as delta
// events followed by the full message.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates a stream handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// StreamResponse is one SSE chunk.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest processes one streamed turn for a session.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	reply, err := h.chatSvc.SubmitMessageStream(ctx, sessionID, userMessage, func(delta string) {
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		if errors.Is(err, chatservice.ErrEmptyInput) {
			utils.SendSSEChunk(w, flusher, StreamResponse{
				Event: "error",
				Error: "please enter a message",
			})
			return nil
		}
		utils.SendSSEChunk(w, flusher, StreamResponse{
			Event: "error",
			Error: err.Error(),
		})
		return err
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply.Turn.Text,
		Intent:    string(reply.Intent),
	})

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s intent=%s", sessionID, reply.Intent)
	return nil
}
