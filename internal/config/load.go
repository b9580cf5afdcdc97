package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file next to the binary or in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables and defaults apply.
	}

	// Environment variables with VOXNOTE_ prefix override file values,
	// e.g. VOXNOTE_DATABASE_URL maps to database.url.
	v.SetEnvPrefix("VOXNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags plus the
// backend-conditional requirements the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Cloud/local backends must be fully configured up front so provider
	// construction fails fast rather than on first use.
	if cfg.LLM.Backend == "gemini" {
		if cfg.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("invalid configuration: llm.gemini_api_key is required for the gemini backend")
		}
		if cfg.LLM.ModelName == "" {
			return fmt.Errorf("invalid configuration: llm.model_name is required for the gemini backend")
		}
	}

	if cfg.STT.Backend == "sherpa" {
		s := cfg.STT.Sherpa
		if s.EncoderPath == "" || s.DecoderPath == "" || s.JoinerPath == "" || s.TokensPath == "" {
			return fmt.Errorf(
				"invalid configuration: stt.sherpa encoder/decoder/joiner/tokens paths are required for the sherpa backend")
		}
	}

	return nil
}

// setDefaults registers every settings key with viper. Settings without a
// meaningful default (database URL, API keys, model paths) are registered
// empty; unregistered keys would be invisible to AutomaticEnv during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("blob.root", "./data/blobs")

	v.SetDefault("queue.remove_on_complete", 100)
	v.SetDefault("queue.remove_on_fail", 500)
	v.SetDefault("queue.stalled_after", 5*time.Minute)
	v.SetDefault("queue.stalled_check_interval", 30*time.Second)

	for _, jobType := range []string{"transcribe", "summarize"} {
		v.SetDefault("workers."+jobType+".concurrency", 2)
		v.SetDefault("workers."+jobType+".rate_limit_per_minute", 30)
		v.SetDefault("workers."+jobType+".max_attempts", 3)
		v.SetDefault("workers."+jobType+".backoff_initial", 2*time.Second)
		v.SetDefault("workers."+jobType+".provider_timeout", 2*time.Minute)
	}

	v.SetDefault("stt.backend", "mock")
	v.SetDefault("stt.sherpa.encoder_path", "")
	v.SetDefault("stt.sherpa.decoder_path", "")
	v.SetDefault("stt.sherpa.joiner_path", "")
	v.SetDefault("stt.sherpa.tokens_path", "")
	v.SetDefault("stt.sherpa.sample_rate", 16000)
	v.SetDefault("stt.sherpa.num_threads", 4)
	v.SetDefault("stt.sherpa.language", "")

	v.SetDefault("llm.backend", "mock")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.prompt_template_path", "")

	v.SetDefault("audit.kafka_enabled", false)
	v.SetDefault("audit.kafka_brokers", []string{})
	v.SetDefault("audit.kafka_topic", "voxnote.audit")
}
