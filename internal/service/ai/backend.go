package ai

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Backend is the opaque text-completion capability invoked for general
// messages. Implementations must honor ctx cancellation; output length is
// bounded at backend construction time.
type Backend interface {
	Generate(ctx context.Context, system, query string) (string, error)
}

// Streamer is implemented by backends that can deliver partial output.
type Streamer interface {
	Stream(ctx context.Context, system, query string) (*schema.StreamReader[*schema.Message], error)
}
