package triage_test

import (
	"context"
	"testing"
	"time"

	"github.com/healthdesk/assistant/internal/config"
	"github.com/healthdesk/assistant/internal/intent"
	"github.com/healthdesk/assistant/internal/service/ai"
	"github.com/healthdesk/assistant/internal/triage"
)

// stuckBackend never produces output; it only honors cancellation.
type stuckBackend struct{}

func (stuckBackend) Generate(ctx context.Context, system, query string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// echoBackend answers with a fixed string.
type echoBackend struct {
	reply string
}

func (b echoBackend) Generate(_ context.Context, _, _ string) (string, error) {
	return b.reply, nil
}

func newResolver(backend ai.Backend, timeout time.Duration) *triage.Resolver {
	return triage.NewResolver(ai.NewService(backend, config.AIConfig{
		Timeout:       timeout,
		MaxReplyChars: 2000,
	}))
}

func TestResolveAppointment(t *testing.T) {
	r := newResolver(nil, time.Second)

	result := r.Resolve(context.Background(), intent.Classification{Intent: intent.Appointment, Keyword: "book"}, "book me in")
	if !result.OpenAppointmentForm {
		t.Fatal("appointment resolution must request the booking form")
	}
	if result.Reply != triage.AppointmentReply {
		t.Fatalf("reply = %q, want the booking advisory", result.Reply)
	}
}

func TestResolveSymptomDeterministic(t *testing.T) {
	r := newResolver(echoBackend{reply: "should never be used"}, time.Second)
	cls := intent.Classification{Intent: intent.Symptom, Keyword: "fever"}

	first := r.Resolve(context.Background(), cls, "I have a fever")
	for range 5 {
		again := r.Resolve(context.Background(), cls, "I have a fever")
		if again.Reply != first.Reply {
			t.Fatal("canned symptom reply must be deterministic")
		}
	}
	if first.Reply != triage.SymptomReply("fever") {
		t.Fatalf("reply = %q, want the fever advisory", first.Reply)
	}
	if first.OpenAppointmentForm {
		t.Fatal("symptom resolution must not open the booking form")
	}
}

func TestResolveSymptomUnknownKeyword(t *testing.T) {
	r := newResolver(echoBackend{reply: "should never be used"}, time.Second)

	result := r.Resolve(context.Background(), intent.Classification{Intent: intent.Symptom, Keyword: "hiccups"}, "hiccups")
	if result.Reply != triage.MoreDetailReply {
		t.Fatalf("reply = %q, want %q", result.Reply, triage.MoreDetailReply)
	}
}

func TestResolveGeneralDelegates(t *testing.T) {
	r := newResolver(echoBackend{reply: "generated answer"}, time.Second)

	result := r.Resolve(context.Background(), intent.Classification{Intent: intent.General}, "tell me a story")
	if result.Reply != "generated answer" {
		t.Fatalf("reply = %q, want backend output", result.Reply)
	}
}

func TestResolveGeneralTimeoutFallsBack(t *testing.T) {
	const bound = 100 * time.Millisecond
	r := newResolver(stuckBackend{}, bound)

	start := time.Now()
	result := r.Resolve(context.Background(), intent.Classification{Intent: intent.General}, "tell me a story")
	elapsed := time.Since(start)

	if result.Reply != ai.FallbackReply {
		t.Fatalf("reply = %q, want fallback", result.Reply)
	}
	if elapsed > bound+500*time.Millisecond {
		t.Fatalf("fallback took %s, want roughly the %s bound", elapsed, bound)
	}
}

func TestResolveGeneralNoBackend(t *testing.T) {
	r := newResolver(nil, time.Second)

	result := r.Resolve(context.Background(), intent.Classification{Intent: intent.General}, "hello there")
	if result.Reply != ai.FallbackReply {
		t.Fatalf("reply = %q, want fallback", result.Reply)
	}
}
