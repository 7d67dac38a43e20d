package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/healthdesk/assistant/internal/model/appointment"
	chatservice "github.com/healthdesk/assistant/internal/service/chat"
)

// Handler runs the live-chat websocket: one connection per session, JSON
// envelopes both ways.
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type textPayload struct {
	Text string `json:"text"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	// Resume or create the session before upgrading so a bad session ID
	// never holds a connection open.
	session, err := h.chatSvc.CreateSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", session.ID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] connection opened for session=%s", session.ID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read failed for session=%s: %v", session.ID, err)
			}
			break
		}

		h.dispatch(r, conn, session.ID, inbound)
	}

	log.Printf("[ws] connection closed for session=%s", session.ID)
}

func (h *Handler) dispatch(r *http.Request, conn *websocket.Conn, sessionID string, inbound inboundMessage) {
	ctx := r.Context()

	switch inbound.Type {
	case "message":
		var payload textPayload
		if err := json.Unmarshal(inbound.Data, &payload); err != nil {
			h.sendError(conn, sessionID, "invalid message payload")
			return
		}
		reply, err := h.chatSvc.SubmitMessage(ctx, sessionID, payload.Text)
		if err != nil {
			h.sendError(conn, sessionID, userFacing(err))
			return
		}
		h.send(conn, sessionID, "reply", reply)

	case "quick_action":
		var payload struct {
			Label string `json:"label"`
		}
		if err := json.Unmarshal(inbound.Data, &payload); err != nil {
			h.sendError(conn, sessionID, "invalid quick action payload")
			return
		}
		reply, err := h.chatSvc.QuickAction(ctx, sessionID, payload.Label)
		if err != nil {
			h.sendError(conn, sessionID, userFacing(err))
			return
		}
		h.send(conn, sessionID, "reply", reply)

	case "open_appointment":
		if err := h.chatSvc.OpenAppointment(ctx, sessionID); err != nil {
			h.sendError(conn, sessionID, userFacing(err))
			return
		}
		h.send(conn, sessionID, "appointment_open", nil)

	case "confirm_appointment":
		var req appointment.Request
		if err := json.Unmarshal(inbound.Data, &req); err != nil {
			h.sendError(conn, sessionID, "invalid appointment payload")
			return
		}
		turn, err := h.chatSvc.ConfirmAppointment(ctx, sessionID, req)
		if err != nil {
			h.sendError(conn, sessionID, userFacing(err))
			return
		}
		h.send(conn, sessionID, "appointment_confirmed", turn)

	case "transcript":
		turns, err := h.chatSvc.TranscriptView(ctx, sessionID, -1)
		if err != nil {
			h.sendError(conn, sessionID, userFacing(err))
			return
		}
		h.send(conn, sessionID, "transcript", turns)

	default:
		h.sendError(conn, sessionID, "unknown message type")
	}
}

func (h *Handler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	out := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(out); err != nil {
		log.Printf("[ws] write failed for session=%s: %v", sessionID, err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID, message string) {
	h.send(conn, sessionID, "error", map[string]string{"message": message})
}

func userFacing(err error) string {
	if errors.Is(err, chatservice.ErrEmptyInput) {
		return "please enter a message"
	}
	return err.Error()
}
