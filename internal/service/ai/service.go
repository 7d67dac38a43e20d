package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/healthdesk/assistant/internal/config"
)

const (
	// Preamble steers the model when a message falls through to generation.
	Preamble = "You are a helpful, cautious medical assistant. Provide brief, evidence-based guidance."

	// FallbackReply is returned whenever generation fails or exceeds its
	// time bound. It is a reply, never an error the user sees.
	FallbackReply = "Sorry — I couldn't generate an answer right now."
)

// Service wraps a Backend with the bounds the conversation engine relies
// on: a wall-clock timeout, an output length ceiling and a static
// fallback. Generate never blocks past the timeout and never returns an
// error.
type Service struct {
	backend       Backend
	timeout       time.Duration
	maxReplyChars int
	stream        bool
}

// NewService builds the bounded generation service. A nil backend is
// allowed and yields the fallback reply for every request, which keeps the
// conversation loop available when no credentials are configured.
func NewService(backend Backend, cfg config.AIConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxReplyChars := cfg.MaxReplyChars
	if maxReplyChars <= 0 {
		maxReplyChars = 2000
	}
	return &Service{
		backend:       backend,
		timeout:       timeout,
		maxReplyChars: maxReplyChars,
		stream:        cfg.StreamResponse,
	}
}

// Enabled reports whether a real backend is wired in.
func (s *Service) Enabled() bool {
	return s.backend != nil
}

// StreamingEnabled reports whether partial output is available.
func (s *Service) StreamingEnabled() bool {
	if !s.stream || s.backend == nil {
		return false
	}
	_, ok := s.backend.(Streamer)
	return ok
}

type generateResult struct {
	text string
	err  error
}

// Generate produces a completion for the user text under the system
// preamble. Failures and timeouts surface as the fallback reply.
func (s *Service) Generate(ctx context.Context, text string) string {
	if s.backend == nil {
		return FallbackReply
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// The backend call is abandoned rather than joined if it outlives the
	// deadline: a stuck provider must not stall the session.
	resultCh := make(chan generateResult, 1)
	go func() {
		reply, err := s.backend.Generate(ctx, Preamble, text)
		resultCh <- generateResult{text: reply, err: err}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[ai] generation timed out after %s", s.timeout)
		return FallbackReply
	case res := <-resultCh:
		if res.err != nil {
			log.Printf("[ai] generation failed: %v", res.err)
			return FallbackReply
		}
		return s.truncate(res.text)
	}
}

// GenerateStream produces a completion, invoking onDelta for each content
// chunk, and returns the full reply. It degrades to blocking generation
// when the backend cannot stream and to the fallback reply on any failure.
func (s *Service) GenerateStream(ctx context.Context, text string, onDelta func(string)) string {
	streamer, ok := s.backend.(Streamer)
	if !ok || !s.stream {
		return s.Generate(ctx, text)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stream, err := streamer.Stream(ctx, Preamble, text)
	if err != nil {
		log.Printf("[ai] failed to open stream: %v", err)
		return FallbackReply
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			log.Printf("[ai] stream receive failed: %v", recvErr)
			return FallbackReply
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		log.Printf("[ai] failed to concat stream chunks: %v", err)
		return FallbackReply
	}
	return s.truncate(full.Content)
}

// truncate enforces the reply length ceiling without splitting runes.
func (s *Service) truncate(text string) string {
	if s.maxReplyChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= s.maxReplyChars {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:s.maxReplyChars]))
}
