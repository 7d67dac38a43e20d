package triage

import (
	"context"

	"github.com/healthdesk/assistant/internal/intent"
	"github.com/healthdesk/assistant/internal/service/ai"
)

// Result is the resolver's answer to one classified message.
// OpenAppointmentForm asks the caller to surface the booking panel; it is
// part of the result rather than a hidden side effect.
type Result struct {
	Reply               string
	OpenAppointmentForm bool
}

// Resolver maps (intent, text) to an assistant reply: a canned string for
// recognized conditions, the bounded generation service for everything
// else.
type Resolver struct {
	gen *ai.Service
}

// NewResolver wires the resolver to the generation service.
func NewResolver(gen *ai.Service) *Resolver {
	return &Resolver{gen: gen}
}

// Resolve produces the reply for a classified message. Symptom messages
// never reach the generation backend; general messages never see the
// canned table. Resolve never returns an error: generation failures are
// absorbed by the generation service's fallback.
func (r *Resolver) Resolve(ctx context.Context, cls intent.Classification, text string) Result {
	switch cls.Intent {
	case intent.Appointment:
		return Result{Reply: AppointmentReply, OpenAppointmentForm: true}
	case intent.Symptom:
		return Result{Reply: SymptomReply(cls.Keyword)}
	default:
		return Result{Reply: r.gen.Generate(ctx, text)}
	}
}

// ResolveStream behaves like Resolve but delivers generation output
// incrementally through onDelta. Canned replies arrive whole.
func (r *Resolver) ResolveStream(ctx context.Context, cls intent.Classification, text string, onDelta func(string)) Result {
	if cls.Intent == intent.General {
		return Result{Reply: r.gen.GenerateStream(ctx, text, onDelta)}
	}
	return r.Resolve(ctx, cls, text)
}
