package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkBackend runs completions through an eino chain: a two-slot prompt
// template feeding the configured chat model.
type ArkBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkBackend compiles the generation chain around the given model.
func NewArkBackend(ctx context.Context, chatModel model.ChatModel) (*ArkBackend, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &ArkBackend{chain: runnable}, nil
}

// Generate runs the chain to completion.
func (b *ArkBackend) Generate(ctx context.Context, system, query string) (string, error) {
	response, err := b.chain.Invoke(ctx, chainInput(system, query))
	if err != nil {
		return "", fmt.Errorf("failed to run generation chain: %w", err)
	}
	return response.Content, nil
}

// Stream returns the chain's chunked output.
func (b *ArkBackend) Stream(ctx context.Context, system, query string) (*schema.StreamReader[*schema.Message], error) {
	stream, err := b.chain.Stream(ctx, chainInput(system, query))
	if err != nil {
		return nil, fmt.Errorf("failed to stream generation chain: %w", err)
	}
	return stream, nil
}

func chainInput(system, query string) map[string]any {
	return map[string]any{
		"system": system,
		"query":  query,
	}
}
