package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/healthdesk/assistant/internal/model/appointment"
	"github.com/healthdesk/assistant/internal/model/chat"
	chatservice "github.com/healthdesk/assistant/internal/service/chat"
	"github.com/healthdesk/assistant/pkg/utils"
)

// summaryRunes is how much of a turn the sidebar summary shows.
const summaryRunes = 80

// Handler exposes the conversation engine over REST.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/messages", h.handleSubmitMessage)
		r.Post("/quick-actions", h.handleQuickAction)
		r.Post("/appointment/open", h.handleOpenAppointment)
		r.Post("/appointment/confirm", h.handleConfirmAppointment)
		r.Get("/transcript", h.handleTranscript)
	})
}

// handleCreateSession provisions a session. Supplying a known sessionId
// resumes it, restoring any persisted transcript.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.SessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleSubmitMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.SubmitMessage(r.Context(), sessionID, payload.Text)
	if err != nil {
		respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.QuickAction(r.Context(), sessionID, payload.Label)
	if err != nil {
		respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleOpenAppointment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatSvc.OpenAppointment(r.Context(), sessionID); err != nil {
		respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"open": true})
}

func (h *Handler) handleConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req appointment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.ConfirmAppointment(r.Context(), sessionID, req)
	if err != nil {
		respondChatError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleTranscript renders the transcript view. limit bounds the number of
// trailing turns (absent means all); summary=true truncates each turn for
// the sidebar history.
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := -1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		limit = val
	}

	turns, err := h.chatSvc.TranscriptView(r.Context(), sessionID, limit)
	if err != nil {
		respondChatError(w, err)
		return
	}

	if r.URL.Query().Get("summary") == "true" {
		for i := range turns {
			turns[i].Text = summarize(turns[i].Text)
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string][]chat.Turn{"turns": turns})
}

func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryRunes {
		return text
	}
	return string(runes[:summaryRunes]) + "..."
}

func respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatservice.ErrEmptyInput):
		utils.RespondError(w, http.StatusBadRequest, "please enter a message")
	case errors.Is(err, appointment.ErrNotOpen):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, appointment.ErrInvalidDate), errors.Is(err, appointment.ErrInvalidTime):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
