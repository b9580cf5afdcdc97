package provider

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSTT_DeterministicOutput(t *testing.T) {
	t.Parallel()

	stt := NewMockSTT()
	audio := []byte("sixteen kilobytes of pretend audio")

	first, err := stt.Transcribe(context.Background(), audio, TranscribeOptions{})
	require.NoError(t, err)
	second, err := stt.Transcribe(context.Background(), audio, TranscribeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "en", first.Language)
	assert.InDelta(t, 0.92, first.Confidence, 0.001)
	assert.NotEmpty(t, first.Segments)
	assert.Equal(t, 2, stt.Calls())
}

func TestMockSTT_LanguageOption(t *testing.T) {
	t.Parallel()

	stt := NewMockSTT()
	result, err := stt.Transcribe(context.Background(), []byte("audio"), TranscribeOptions{Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, "de", result.Language)
}

func TestMockSTT_EmptyAudio(t *testing.T) {
	t.Parallel()

	stt := NewMockSTT()
	_, err := stt.Transcribe(context.Background(), nil, TranscribeOptions{})
	assert.ErrorIs(t, err, ErrEmptyAudio)
	assert.ErrorIs(t, err, ErrSTTFailure)
	assert.False(t, IsTransient(err))
}

func TestMockSTT_ScriptedFailures(t *testing.T) {
	t.Parallel()

	stt := NewMockSTT()
	stt.FailTimes(2)
	audio := []byte("audio")

	for i := 0; i < 2; i++ {
		_, err := stt.Transcribe(context.Background(), audio, TranscribeOptions{})
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	}

	_, err := stt.Transcribe(context.Background(), audio, TranscribeOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 3, stt.Calls())
}

func TestMockSTT_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stt := NewMockSTT()
	_, err := stt.Transcribe(ctx, []byte("audio"), TranscribeOptions{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestMockLLM_SchemaValidOutput(t *testing.T) {
	t.Parallel()

	llm := NewMockLLM()
	result, err := llm.Summarize(context.Background(), "We reviewed the roadmap and agreed on next steps.", SummarizeOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.TLDR)
	assert.NotEmpty(t, result.Bullets)
	require.GreaterOrEqual(t, len(result.Actions), 1)
	for _, action := range result.Actions {
		assert.NotEmpty(t, action.Text)
	}
}

func TestMockLLM_TruncatesLongTLDR(t *testing.T) {
	t.Parallel()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}

	llm := NewMockLLM()
	result, err := llm.Summarize(context.Background(), string(long), SummarizeOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.TLDR), 120)
}

func TestMockLLM_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ü", 200)

	llm := NewMockLLM()
	result, err := llm.Summarize(context.Background(), long, SummarizeOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.TLDR), 120)
	assert.True(t, utf8.ValidString(result.TLDR))
}

func TestMockLLM_EmptyText(t *testing.T) {
	t.Parallel()

	llm := NewMockLLM()
	_, err := llm.Summarize(context.Background(), "", SummarizeOptions{})
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.ErrorIs(t, err, ErrLLMFailure)
}

func TestMockLLM_ScriptedFailures(t *testing.T) {
	t.Parallel()

	llm := NewMockLLM()
	llm.FailTimes(1)

	_, err := llm.Summarize(context.Background(), "text", SummarizeOptions{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	_, err = llm.Summarize(context.Background(), "text", SummarizeOptions{})
	assert.NoError(t, err)
	assert.Equal(t, 2, llm.Calls())
}
