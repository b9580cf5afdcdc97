package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Blob     BlobConfig     `mapstructure:"blob" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Workers  WorkersConfig  `mapstructure:"workers" validate:"required"`
	STT      STTConfig      `mapstructure:"stt" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// BlobConfig locates the blob storage the pipeline fetches audio bytes from.
type BlobConfig struct {
	// Root is the base directory storage keys resolve against.
	Root string `mapstructure:"root" validate:"required"`
}

// QueueConfig contains job-queue policy settings shared by all job types.
type QueueConfig struct {
	// RemoveOnComplete caps how many completed job records are retained
	// per job type before the oldest are garbage-collected.
	RemoveOnComplete int `mapstructure:"remove_on_complete" validate:"gte=0"`

	// RemoveOnFail caps how many failed job records are retained per job type.
	RemoveOnFail int `mapstructure:"remove_on_fail" validate:"gte=0"`

	// StalledAfter is how long a job may stay active before the watchdog
	// treats it as abandoned by its worker.
	StalledAfter time.Duration `mapstructure:"stalled_after" validate:"gt=0"`

	// StalledCheckInterval is how often the watchdog scans for stalled jobs.
	StalledCheckInterval time.Duration `mapstructure:"stalled_check_interval" validate:"gt=0"`
}

// WorkersConfig groups the per-job-type worker settings.
type WorkersConfig struct {
	Transcribe WorkerConfig `mapstructure:"transcribe" validate:"required"`
	Summarize  WorkerConfig `mapstructure:"summarize" validate:"required"`
}

// WorkerConfig contains the execution policy for one job type's worker pool.
type WorkerConfig struct {
	// Concurrency is the number of concurrent workers in the pool.
	Concurrency int `mapstructure:"concurrency" validate:"required,gt=0"`

	// RateLimitPerMinute bounds how many jobs the pool starts in any
	// sliding one-minute window, independent of concurrency. Zero disables
	// the limit.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" validate:"gte=0"`

	// MaxAttempts is the number of delivery attempts per job before it is
	// terminally failed.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1"`

	// BackoffInitial is the delay before the first retry; subsequent
	// retries back off exponentially with jitter.
	BackoffInitial time.Duration `mapstructure:"backoff_initial" validate:"gt=0"`

	// ProviderTimeout bounds each provider call made by a handler.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" validate:"gt=0"`
}

// STTConfig selects and configures the speech-to-text backend.
type STTConfig struct {
	// Backend names the STT provider implementation to construct.
	Backend string `mapstructure:"backend" validate:"required,oneof=mock sherpa"`

	Sherpa SherpaConfig `mapstructure:"sherpa"`
}

// SherpaConfig contains settings for the sherpa-onnx offline recognizer.
// Only validated when the sherpa backend is selected.
type SherpaConfig struct {
	EncoderPath string `mapstructure:"encoder_path"`
	DecoderPath string `mapstructure:"decoder_path"`
	JoinerPath  string `mapstructure:"joiner_path"`
	TokensPath  string `mapstructure:"tokens_path"`
	SampleRate  int    `mapstructure:"sample_rate"`
	NumThreads  int    `mapstructure:"num_threads"`
	Language    string `mapstructure:"language"`
}

// LLMConfig selects and configures the summarization backend.
type LLMConfig struct {
	// Backend names the LLM provider implementation to construct.
	Backend string `mapstructure:"backend" validate:"required,oneof=mock gemini"`

	// GeminiAPIKey authenticates against the Gemini API.
	// Required when the gemini backend is selected.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// ModelName is the Gemini model used for summarization.
	ModelName string `mapstructure:"model_name"`

	// PromptTemplatePath optionally overrides the built-in prompt template.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
}

// AuditConfig configures the optional Kafka audit publisher. The store-backed
// audit sink is always active; Kafka broadcast is additive.
type AuditConfig struct {
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers" validate:"required_if=KafkaEnabled true"`
	KafkaTopic   string   `mapstructure:"kafka_topic" validate:"required_if=KafkaEnabled true"`
}
