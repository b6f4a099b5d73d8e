package core

import (
	"context"
	"fmt"

	"lernbuddy.de/lernbuddy/internal/config"
)

// NewGenerator builds the gateway selected by cfg.ModelProvider. The returned
// close function releases the underlying client.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, func(), error) {
	switch cfg.ModelProvider {
	case config.ProviderGemini:
		g, err := NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	case config.ProviderOpenAI:
		return NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}
