package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewProvider_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(context.Background(), testLogger(), config.LLMConfig{
		Backend:   "gemini",
		ModelName: "gemini-2.0-flash",
	})
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)

	_, err = NewProvider(context.Background(), testLogger(), config.LLMConfig{
		Backend:      "gemini",
		GeminiAPIKey: "test-key",
	})
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}

func TestNewProvider_MissingTemplateOverride(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(context.Background(), testLogger(), config.LLMConfig{
		Backend:            "gemini",
		GeminiAPIKey:       "test-key",
		ModelName:          "gemini-2.0-flash",
		PromptTemplatePath: "/nonexistent/prompt.tmpl",
	})
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}

func TestExtractResponse_ReadsCandidateParts(t *testing.T) {
	t.Parallel()

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "{\"tl_dr\": \"Recap.\", "},
					{Text: "\"bullets\": [\"a\"], \"actions\": []}"},
				},
			},
		}},
	}

	schema, err := extractResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Recap.", schema.TLDR)
	assert.Equal(t, []string{"a"}, schema.Bullets)
}

func TestExtractResponse_Failures(t *testing.T) {
	t.Parallel()

	_, err := extractResponse(nil)
	assert.ErrorIs(t, err, provider.ErrLLMFailure)

	_, err = extractResponse(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no content generated")

	_, err = extractResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	})
	assert.ErrorContains(t, err, "safety")

	_, err = extractResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	})
	assert.ErrorContains(t, err, "empty content")
}

func TestParseResponseText_PlainJSON(t *testing.T) {
	t.Parallel()

	schema, err := parseResponseText(`{
		"tl_dr": "Short recap.",
		"bullets": ["point one"],
		"actions": [{"text": "follow up", "priority": "high", "due_suggested": "2026-09-15"}]
	}`)
	require.NoError(t, err)
	assert.Equal(t, "Short recap.", schema.TLDR)
	require.Len(t, schema.Actions, 1)
	assert.Equal(t, "2026-09-15", schema.Actions[0].DueSuggested)
}

func TestParseResponseText_CodeFenced(t *testing.T) {
	t.Parallel()

	fenced := "```json\n{\"tl_dr\": \"Recap.\", \"bullets\": [\"a\"], \"actions\": []}\n```"
	schema, err := parseResponseText(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Recap.", schema.TLDR)
	assert.Equal(t, []string{"a"}, schema.Bullets)
}

func TestParseResponseText_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := parseResponseText("I could not produce JSON, sorry.")
	assert.ErrorIs(t, err, provider.ErrLLMFailure)
}

func TestToResult_ValidatesShape(t *testing.T) {
	t.Parallel()

	_, err := (&responseSchema{Bullets: []string{"a"}}).toResult()
	assert.ErrorContains(t, err, "tl;dr")

	_, err = (&responseSchema{TLDR: "recap"}).toResult()
	assert.ErrorContains(t, err, "bullets")
}

func TestToResult_ActionParsing(t *testing.T) {
	t.Parallel()

	schema := &responseSchema{
		TLDR:    "recap",
		Bullets: []string{"a"},
		Actions: []actionSchema{
			{Text: "with due date", Priority: "high", DueSuggested: "2026-09-01"},
			{Text: "bad due date", DueSuggested: "next tuesday"},
			{Text: ""}, // dropped
		},
	}

	result, err := schema.toResult()
	require.NoError(t, err)
	require.Len(t, result.Actions, 2)

	require.NotNil(t, result.Actions[0].DueSuggested)
	assert.Equal(t, "2026-09-01", result.Actions[0].DueSuggested.Format("2006-01-02"))

	// An unparseable date degrades to no suggestion rather than an error.
	assert.Nil(t, result.Actions[1].DueSuggested)
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, stripCodeFence(tc.in))
		})
	}
}

func TestCreatePrompt_IncludesTranscriptAndLanguage(t *testing.T) {
	t.Parallel()

	tmpl, err := loadPromptTemplate("")
	require.NoError(t, err)
	p := &Provider{logger: testLogger(), promptTemplate: tmpl}

	prompt, err := p.createPrompt(context.Background(), "the transcript body", provider.SummarizeOptions{
		Language: "de",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "the transcript body")
	assert.Contains(t, prompt, "Respond in the language: de")
}
