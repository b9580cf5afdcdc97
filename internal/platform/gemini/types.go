package gemini

// promptData is the data passed to the prompt template.
type promptData struct {
	TranscriptText string
	Language       string
}

// responseSchema is the JSON structure the model is instructed to produce.
type responseSchema struct {
	TLDR    string         `json:"tl_dr"`
	Bullets []string       `json:"bullets"`
	Actions []actionSchema `json:"actions"`
}

// actionSchema is one action item in the model's response. DueSuggested is
// an ISO date string or empty.
type actionSchema struct {
	Text         string `json:"text"`
	Priority     string `json:"priority,omitempty"`
	DueSuggested string `json:"due_suggested,omitempty"`
}

// defaultPromptTemplate instructs the model to return strict JSON matching
// responseSchema. An operator can override it via llm.prompt_template_path.
const defaultPromptTemplate = `You are an assistant that summarizes voice memo transcripts.

Summarize the transcript below. Respond with ONLY a JSON object, no prose,
matching this schema exactly:

{
  "tl_dr": "one or two sentence summary",
  "bullets": ["key point", "..."],
  "actions": [
    {"text": "follow-up item", "priority": "high|medium|low", "due_suggested": "YYYY-MM-DD or omit"}
  ]
}

Rules:
- tl_dr must be non-empty and at most two sentences.
- bullets must contain between one and seven entries.
- actions lists concrete follow-ups mentioned or implied by the speaker;
  use an empty array when there are none.
{{if .Language}}- Respond in the language: {{.Language}}.
{{end}}
Transcript:
{{.TranscriptText}}
`
