package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthdesk/assistant/internal/intent"
	"github.com/healthdesk/assistant/internal/model/appointment"
	"github.com/healthdesk/assistant/internal/model/chat"
	"github.com/healthdesk/assistant/internal/store"
	"github.com/healthdesk/assistant/internal/triage"
)

var (
	ErrEmptyInput      = errors.New("message text is empty")
	ErrSessionNotFound = errors.New("session not found")
)

// BookAppointmentAction is the quick-action label that opens the booking
// panel instead of submitting a message.
const BookAppointmentAction = "Book Appointment"

// Reply is the engine's answer to one submitted message.
type Reply struct {
	Turn                chat.Turn     `json:"turn"`
	Intent              intent.Intent `json:"intent"`
	Keyword             string        `json:"keyword,omitempty"`
	OpenAppointmentForm bool          `json:"openAppointmentForm,omitempty"`
}

// session is the per-conversation state the engine owns exclusively. The
// mutex serializes user actions: one handler runs to completion before the
// next is accepted, so no two handlers for the same session overlap.
type session struct {
	mu          sync.Mutex
	meta        chat.Session
	transcript  *store.Transcript
	appointment appointment.Flow
}

// Service is the conversation engine: it routes each submitted message
// through classification and resolution, appends the resulting turns and
// keeps the transcript durable. Distinct sessions are independent and may
// run in parallel.
type Service struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	classifier *intent.Classifier
	resolver   *triage.Resolver
	persist    store.Store
}

// NewService bootstraps the engine. persist may be nil, in which case
// transcripts live only in memory.
func NewService(classifier *intent.Classifier, resolver *triage.Resolver, persist store.Store) *Service {
	return &Service{
		sessions:   make(map[string]*session),
		classifier: classifier,
		resolver:   resolver,
		persist:    persist,
	}
}

// CreateSession provisions a session. An empty id gets a fresh UUID; a
// known id returns the existing session; an id with persisted history gets
// its transcript restored. Malformed stored data is reported and the
// session starts empty.
func (s *Service) CreateSession(ctx context.Context, id string) (chat.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return existing.meta, nil
	}

	sess := &session{
		meta:       chat.Session{ID: id, CreatedAt: time.Now().UTC()},
		transcript: store.NewTranscript(),
	}

	// Publish the session before restoring: the restore does I/O and must
	// only block actions on this session, which queue on sess.mu.
	sess.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.persist != nil {
		if err := sess.transcript.Restore(ctx, id, s.persist); err != nil {
			log.Printf("[chat] failed to restore transcript for session=%s: %v", id, err)
		}
	}
	sess.mu.Unlock()

	return sess.meta, nil
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SubmitMessage runs one full turn: classify, resolve, append the user and
// assistant turns, persist. Blank input appends nothing and returns
// ErrEmptyInput so the caller can ask the user to re-enter.
func (s *Service) SubmitMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	return s.submit(ctx, sessionID, text, nil)
}

// SubmitMessageStream is SubmitMessage with incremental delivery: onDelta
// receives generation chunks as they arrive. Canned replies skip onDelta.
func (s *Service) SubmitMessageStream(ctx context.Context, sessionID, text string, onDelta func(string)) (Reply, error) {
	return s.submit(ctx, sessionID, text, onDelta)
}

func (s *Service) submit(ctx context.Context, sessionID, text string, onDelta func(string)) (Reply, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return Reply{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyInput
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	cls := s.classifier.Classify(text)

	// The user turn lands before resolution so transcript reads taken while
	// a reply is being generated already include the message being answered.
	sess.transcript.Append(chat.RoleUser, text)

	var result triage.Result
	if onDelta != nil {
		result = s.resolver.ResolveStream(ctx, cls, text, onDelta)
	} else {
		result = s.resolver.Resolve(ctx, cls, text)
	}

	turn := sess.transcript.Append(chat.RoleAssistant, result.Reply)
	if result.OpenAppointmentForm {
		sess.appointment.OpenForm()
	}
	s.persistLocked(ctx, sess)

	return Reply{
		Turn:                turn,
		Intent:              cls.Intent,
		Keyword:             cls.Keyword,
		OpenAppointmentForm: result.OpenAppointmentForm,
	}, nil
}

// QuickAction handles the widget's one-tap buttons. Symptom labels submit
// the label as a regular message; the booking action opens the panel
// without appending turns.
func (s *Service) QuickAction(ctx context.Context, sessionID, label string) (Reply, error) {
	if strings.EqualFold(strings.TrimSpace(label), BookAppointmentAction) {
		if err := s.OpenAppointment(ctx, sessionID); err != nil {
			return Reply{}, err
		}
		return Reply{Intent: intent.Appointment, OpenAppointmentForm: true}, nil
	}
	return s.SubmitMessage(ctx, sessionID, label)
}

// OpenAppointment surfaces the booking form for the session.
func (s *Service) OpenAppointment(_ context.Context, sessionID string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.appointment.OpenForm()
	sess.mu.Unlock()
	return nil
}

// AppointmentOpen reports whether the booking form is surfaced.
func (s *Service) AppointmentOpen(sessionID string) (bool, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.appointment.IsOpen(), nil
}

// ConfirmAppointment validates the booking, appends exactly one assistant
// confirmation turn and returns the flow to closed.
func (s *Service) ConfirmAppointment(ctx context.Context, sessionID string, req appointment.Request) (chat.Turn, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return chat.Turn{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	text, err := sess.appointment.Confirm(req)
	if err != nil {
		return chat.Turn{}, err
	}

	turn := sess.transcript.Append(chat.RoleAssistant, text)
	s.persistLocked(ctx, sess)
	return turn, nil
}

// TranscriptView returns the last n turns in original order. n < 0 means
// the whole transcript.
func (s *Service) TranscriptView(_ context.Context, sessionID string, n int) ([]chat.Turn, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return sess.transcript.Snapshot(), nil
	}
	return sess.transcript.Recent(n), nil
}

// persistLocked dumps the transcript after a turn. A failed write is
// reported and the in-memory transcript stays the source of truth; the
// conversation keeps going.
func (s *Service) persistLocked(ctx context.Context, sess *session) {
	if s.persist == nil {
		return
	}
	if err := sess.transcript.Persist(ctx, sess.meta.ID, s.persist); err != nil {
		log.Printf("[chat] failed to persist transcript for session=%s: %v", sess.meta.ID, err)
	}
}
