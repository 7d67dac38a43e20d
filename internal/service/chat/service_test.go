package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthdesk/assistant/internal/config"
	"github.com/healthdesk/assistant/internal/intent"
	"github.com/healthdesk/assistant/internal/model/appointment"
	chatmodel "github.com/healthdesk/assistant/internal/model/chat"
	"github.com/healthdesk/assistant/internal/service/ai"
	chat "github.com/healthdesk/assistant/internal/service/chat"
	"github.com/healthdesk/assistant/internal/store"
	"github.com/healthdesk/assistant/internal/triage"
)

func newService(persist store.Store) *chat.Service {
	gen := ai.NewService(nil, config.AIConfig{Timeout: time.Second, MaxReplyChars: 2000})
	return chat.NewService(intent.NewClassifier(), triage.NewResolver(gen), persist)
}

func TestSubmitMessageSymptom(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	reply, err := svc.SubmitMessage(ctx, session.ID, "I have a fever")
	if err != nil {
		t.Fatalf("SubmitMessage err: %v", err)
	}

	if reply.Intent != intent.Symptom || reply.Keyword != "fever" {
		t.Fatalf("got intent=%s keyword=%q, want symptom/fever", reply.Intent, reply.Keyword)
	}
	if reply.Turn.Role != chatmodel.RoleAssistant {
		t.Fatalf("reply turn role = %s, want assistant", reply.Turn.Role)
	}
	if reply.Turn.Text != triage.SymptomReply("fever") {
		t.Fatalf("reply text = %q, want the fever advisory", reply.Turn.Text)
	}

	turns, err := svc.TranscriptView(ctx, session.ID, -1)
	if err != nil {
		t.Fatalf("TranscriptView err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("transcript has %d turns, want 2", len(turns))
	}
	if turns[0].Role != chatmodel.RoleUser || turns[1].Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected turn roles: %s, %s", turns[0].Role, turns[1].Role)
	}
}

func TestSubmitMessageEmpty(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := svc.SubmitMessage(ctx, session.ID, input); !errors.Is(err, chat.ErrEmptyInput) {
			t.Fatalf("SubmitMessage(%q) = %v, want ErrEmptyInput", input, err)
		}
	}

	turns, _ := svc.TranscriptView(ctx, session.ID, -1)
	if len(turns) != 0 {
		t.Fatalf("blank input appended %d turns, want 0", len(turns))
	}
}

func TestSubmitMessageUnknownSession(t *testing.T) {
	svc := newService(nil)

	if _, err := svc.SubmitMessage(context.Background(), "missing", "hello"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}

func TestAppointmentRoundTrip(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")

	// A booking-intent message opens the form as part of the result.
	reply, err := svc.SubmitMessage(ctx, session.ID, "I'd like to book an appointment")
	if err != nil {
		t.Fatalf("SubmitMessage err: %v", err)
	}
	if !reply.OpenAppointmentForm {
		t.Fatal("booking intent must surface the appointment form")
	}
	if open, _ := svc.AppointmentOpen(session.ID); !open {
		t.Fatal("appointment form should be open")
	}

	turn, err := svc.ConfirmAppointment(ctx, session.ID, appointment.Request{Date: "2025-03-01", Time: "14:30"})
	if err != nil {
		t.Fatalf("ConfirmAppointment err: %v", err)
	}
	if turn.Role != chatmodel.RoleAssistant {
		t.Fatalf("confirmation role = %s, want assistant", turn.Role)
	}
	if turn.Text != "✅ Appointment confirmed on 2025-03-01 at 14:30." {
		t.Fatalf("confirmation text = %q", turn.Text)
	}

	if open, _ := svc.AppointmentOpen(session.ID); open {
		t.Fatal("appointment form should be closed after confirm")
	}

	// Exactly one assistant turn was appended by the confirmation.
	turns, _ := svc.TranscriptView(ctx, session.ID, -1)
	if len(turns) != 3 {
		t.Fatalf("transcript has %d turns, want 3", len(turns))
	}

	// Confirming again without reopening is rejected.
	if _, err := svc.ConfirmAppointment(ctx, session.ID, appointment.Request{Date: "2025-03-02", Time: "09:00"}); !errors.Is(err, appointment.ErrNotOpen) {
		t.Fatalf("got %v, want ErrNotOpen", err)
	}
}

func TestQuickActions(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")

	reply, err := svc.QuickAction(ctx, session.ID, "Cough")
	if err != nil {
		t.Fatalf("QuickAction err: %v", err)
	}
	if reply.Intent != intent.Symptom || reply.Turn.Text != triage.SymptomReply("cough") {
		t.Fatalf("quick action reply = %+v", reply)
	}

	reply, err = svc.QuickAction(ctx, session.ID, "Book Appointment")
	if err != nil {
		t.Fatalf("QuickAction err: %v", err)
	}
	if !reply.OpenAppointmentForm {
		t.Fatal("booking quick action must open the form")
	}

	// The booking action appends no turns.
	turns, _ := svc.TranscriptView(ctx, session.ID, -1)
	if len(turns) != 2 {
		t.Fatalf("transcript has %d turns, want 2", len(turns))
	}
}

func TestTranscriptViewBounds(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")
	if _, err := svc.SubmitMessage(ctx, session.ID, "I have a cold"); err != nil {
		t.Fatalf("SubmitMessage err: %v", err)
	}

	if turns, _ := svc.TranscriptView(ctx, session.ID, 0); len(turns) != 0 {
		t.Fatalf("view(0) returned %d turns", len(turns))
	}
	if turns, _ := svc.TranscriptView(ctx, session.ID, 1); len(turns) != 1 || turns[0].Role != chatmodel.RoleAssistant {
		t.Fatal("view(1) must return only the last turn")
	}
	if turns, _ := svc.TranscriptView(ctx, session.ID, 50); len(turns) != 2 {
		t.Fatalf("view(50) returned %d turns, want whole transcript", len(turns))
	}
}

// generateFunc adapts a function to the generation backend interface.
type generateFunc func(ctx context.Context, system, query string) (string, error)

func (f generateFunc) Generate(ctx context.Context, system, query string) (string, error) {
	return f(ctx, system, query)
}

func TestUserTurnVisibleDuringGeneration(t *testing.T) {
	ctx := context.Background()

	var svc *chat.Service
	var during []chatmodel.Turn
	backend := generateFunc(func(ctx context.Context, _, _ string) (string, error) {
		turns, err := svc.TranscriptView(ctx, "visit-1", -1)
		if err != nil {
			return "", err
		}
		during = turns
		return "generated answer", nil
	})

	gen := ai.NewService(backend, config.AIConfig{Timeout: time.Second, MaxReplyChars: 2000})
	svc = chat.NewService(intent.NewClassifier(), triage.NewResolver(gen), nil)

	if _, err := svc.CreateSession(ctx, "visit-1"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := svc.SubmitMessage(ctx, "visit-1", "how much water should I drink"); err != nil {
		t.Fatalf("SubmitMessage err: %v", err)
	}

	// The message being answered is already on the transcript while the
	// reply is still being generated.
	if len(during) != 1 {
		t.Fatalf("transcript had %d turns during generation, want 1", len(during))
	}
	if during[0].Role != chatmodel.RoleUser || during[0].Text != "how much water should I drink" {
		t.Fatalf("turn during generation = %+v, want the pending user message", during[0])
	}
}

// gatedStore stalls the restore of one session until released.
type gatedStore struct {
	slowID  string
	entered chan struct{}
	gate    chan struct{}
}

func (g *gatedStore) ReadAll(_ context.Context, sessionID string) ([]chatmodel.Turn, error) {
	if sessionID == g.slowID {
		close(g.entered)
		<-g.gate
	}
	return nil, nil
}

func (g *gatedStore) WriteAll(context.Context, string, []chatmodel.Turn) error {
	return nil
}

func TestRestoreDoesNotBlockOtherSessions(t *testing.T) {
	gs := &gatedStore{
		slowID:  "slow",
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	svc := newService(gs)
	ctx := context.Background()

	restored := make(chan struct{})
	go func() {
		defer close(restored)
		if _, err := svc.CreateSession(ctx, "slow"); err != nil {
			t.Errorf("CreateSession(slow) err: %v", err)
		}
	}()
	<-gs.entered

	// A different session stays fully usable while the restore is stuck.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.CreateSession(ctx, "quick"); err != nil {
			t.Errorf("CreateSession(quick) err: %v", err)
			return
		}
		if _, err := svc.SubmitMessage(ctx, "quick", "I have a cough"); err != nil {
			t.Errorf("SubmitMessage(quick) err: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unrelated session stalled behind a slow restore")
	}

	close(gs.gate)
	<-restored

	if _, err := svc.SubmitMessage(ctx, "slow", "I have a fever"); err != nil {
		t.Fatalf("SubmitMessage(slow) after restore err: %v", err)
	}
}

func TestSessionResumeRestoresTranscript(t *testing.T) {
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}
	ctx := context.Background()

	first := newService(fs)
	session, _ := first.CreateSession(ctx, "patient-7")
	if _, err := first.SubmitMessage(ctx, session.ID, "my chest pain is back"); err != nil {
		t.Fatalf("SubmitMessage err: %v", err)
	}

	// A fresh engine resuming the same session sees the persisted turns.
	second := newService(fs)
	if _, err := second.CreateSession(ctx, "patient-7"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	turns, err := second.TranscriptView(ctx, "patient-7", -1)
	if err != nil {
		t.Fatalf("TranscriptView err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("restored %d turns, want 2", len(turns))
	}
	if turns[0].Text != "my chest pain is back" {
		t.Fatalf("restored first turn = %q", turns[0].Text)
	}
}
