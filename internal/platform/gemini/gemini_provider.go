package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/provider"
	"github.com/voxnote/voxnote-api/internal/redact"
)

// Provider implements the provider.LLMProvider interface using Google's
// Gemini API to summarize transcript text.
type Provider struct {
	logger         *slog.Logger
	cfg            config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// NewProvider creates a new Gemini-backed summarization provider.
// Configuration is validated and the API client constructed up front so an
// unconfigured backend fails fast rather than on first use.
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", provider.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", provider.ErrInvalidConfig)
	}

	promptTemplate, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			provider.ErrInvalidConfig, err)
	}

	return &Provider{
		logger:         logger.With(slog.String("component", "gemini_provider")),
		cfg:            cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// loadPromptTemplate parses the prompt template from the override path when
// configured, otherwise the built-in default.
func loadPromptTemplate(path string) (*template.Template, error) {
	content := defaultPromptTemplate
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				provider.ErrInvalidConfig, path, err)
		}
		content = string(raw)
	}

	promptTemplate, err := template.New("summarize").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			provider.ErrInvalidConfig, err)
	}
	return promptTemplate, nil
}

// Summarize implements provider.LLMProvider. It makes a single API call;
// retry scheduling belongs to the job queue, which distinguishes transient
// from permanent failures through the returned error chain.
func (p *Provider) Summarize(
	ctx context.Context,
	text string,
	opts provider.SummarizeOptions,
) (*provider.SummaryResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: %w", provider.ErrLLMFailure, provider.ErrEmptyText)
	}

	prompt, err := p.createPrompt(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrLLMFailure, err)
	}

	modelName := p.model
	if opts.Model != "" {
		modelName = opts.Model
	}

	p.logger.InfoContext(ctx, "making Gemini API call",
		slog.String("model", modelName),
		slog.Int("text_length", len(text)))

	resp, err := p.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
	if err != nil {
		// API and network errors are assumed transient; the queue retries
		// with backoff up to its attempt budget. The raw error can echo the
		// request URL, so the key is redacted before it reaches any log.
		return nil, fmt.Errorf("%w: %w: %s",
			provider.ErrLLMFailure, provider.ErrTransient, redact.Error(err))
	}

	schema, err := extractResponse(resp)
	if err != nil {
		return nil, err
	}

	result, err := schema.toResult()
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Gemini API call successful",
		slog.Int("bullet_count", len(result.Bullets)),
		slog.Int("action_count", len(result.Actions)))

	return result, nil
}

// Name implements provider.LLMProvider.
func (p *Provider) Name() string {
	return provider.NameGemini
}

// createPrompt generates a prompt string from the template with the provided
// transcript text and options.
func (p *Provider) createPrompt(
	ctx context.Context,
	text string,
	opts provider.SummarizeOptions,
) (string, error) {
	data := promptData{
		TranscriptText: text,
		Language:       opts.Language,
	}

	p.logger.DebugContext(ctx, "generating prompt from template",
		slog.Int("text_length", len(text)))

	var promptBuffer bytes.Buffer
	if err := p.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return promptBuffer.String(), nil
}

// extractResponse validates the raw API response and parses the JSON body
// into the expected schema. All failures here are permanent: a malformed or
// blocked response will not improve on retry.
func extractResponse(resp *genai.GenerateContentResponse) (*responseSchema, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", provider.ErrLLMFailure)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", provider.ErrLLMFailure)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", provider.ErrLLMFailure)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", provider.ErrLLMFailure)
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	return parseResponseText(text)
}

// parseResponseText unmarshals the model's JSON output, tolerating markdown
// code fences around the body.
func parseResponseText(text string) (*responseSchema, error) {
	trimmed := stripCodeFence(text)

	var parsed responseSchema
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", provider.ErrLLMFailure, err)
	}
	return &parsed, nil
}

// toResult converts the wire schema into the provider result, validating
// the shape the pipeline depends on.
func (s *responseSchema) toResult() (*provider.SummaryResult, error) {
	if s.TLDR == "" {
		return nil, fmt.Errorf("%w: response missing tl;dr", provider.ErrLLMFailure)
	}
	if len(s.Bullets) == 0 {
		return nil, fmt.Errorf("%w: response missing bullets", provider.ErrLLMFailure)
	}

	result := &provider.SummaryResult{
		TLDR:    s.TLDR,
		Bullets: s.Bullets,
	}

	for _, action := range s.Actions {
		if action.Text == "" {
			continue
		}
		item := provider.ActionItem{
			Text:     action.Text,
			Priority: action.Priority,
		}
		if action.DueSuggested != "" {
			if due, err := time.Parse("2006-01-02", action.DueSuggested); err == nil {
				item.DueSuggested = &due
			}
		}
		result.Actions = append(result.Actions, item)
	}

	return result, nil
}

// stripCodeFence removes a leading/trailing markdown code fence if present.
func stripCodeFence(text string) string {
	trimmed := bytes.TrimSpace([]byte(text))
	if bytes.HasPrefix(trimmed, []byte("```")) {
		if idx := bytes.IndexByte(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
	}
	return string(bytes.TrimSpace(trimmed))
}
