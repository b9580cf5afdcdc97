// Package factory constructs provider backends from configuration. It is
// the single place backend names are mapped to implementations; an
// unconfigured cloud or local backend fails here, at startup.
package factory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/platform/gemini"
	"github.com/voxnote/voxnote-api/internal/platform/sherpa"
	"github.com/voxnote/voxnote-api/internal/provider"
)

// STT constructs the speech-to-text backend named by the configuration.
func STT(cfg config.STTConfig, logger *slog.Logger) (provider.STTProvider, error) {
	switch cfg.Backend {
	case provider.NameMock:
		return provider.NewMockSTT(), nil
	case provider.NameSherpa:
		return sherpa.NewProvider(cfg.Sherpa, logger)
	default:
		return nil, fmt.Errorf("%w: stt backend %q", provider.ErrUnknownBackend, cfg.Backend)
	}
}

// LLM constructs the summarization backend named by the configuration.
func LLM(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (provider.LLMProvider, error) {
	switch cfg.Backend {
	case provider.NameMock:
		return provider.NewMockLLM(), nil
	case provider.NameGemini:
		return gemini.NewProvider(ctx, logger, cfg)
	default:
		return nil, fmt.Errorf("%w: llm backend %q", provider.ErrUnknownBackend, cfg.Backend)
	}
}
