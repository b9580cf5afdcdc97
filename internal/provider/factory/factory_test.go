package factory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSTT_MockBackend(t *testing.T) {
	t.Parallel()

	stt, err := STT(config.STTConfig{Backend: provider.NameMock}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, provider.NameMock, stt.Name())
}

func TestSTT_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := STT(config.STTConfig{Backend: "whisper"}, testLogger())
	assert.ErrorIs(t, err, provider.ErrUnknownBackend)
}

func TestSTT_SherpaMissingModelPaths(t *testing.T) {
	t.Parallel()

	_, err := STT(config.STTConfig{Backend: provider.NameSherpa}, testLogger())
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}

func TestLLM_MockBackend(t *testing.T) {
	t.Parallel()

	llm, err := LLM(context.Background(), config.LLMConfig{Backend: provider.NameMock}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, provider.NameMock, llm.Name())
}

func TestLLM_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := LLM(context.Background(), config.LLMConfig{Backend: "openai"}, testLogger())
	assert.ErrorIs(t, err, provider.ErrUnknownBackend)
}

func TestLLM_GeminiMissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := LLM(context.Background(), config.LLMConfig{Backend: provider.NameGemini}, testLogger())
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}
