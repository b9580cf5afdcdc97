package sherpa

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/provider"
)

// maxAudioBytes is the largest WAV payload the provider accepts. Offline
// decoding holds the full sample buffer in memory.
const maxAudioBytes = 100 << 20

// Provider implements provider.STTProvider using a sherpa-onnx offline
// transducer recognizer running locally.
type Provider struct {
	cfg        config.SherpaConfig
	recognizer *sherpa.OfflineRecognizer
	logger     *slog.Logger
}

// NewProvider creates a sherpa-onnx backed STT provider. Model files are
// checked and the recognizer is constructed up front so a misconfigured
// backend fails at startup, not on the first job.
func NewProvider(cfg config.SherpaConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, path := range []string{cfg.EncoderPath, cfg.DecoderPath, cfg.JoinerPath, cfg.TokensPath} {
		if path == "" {
			return nil, fmt.Errorf("%w: sherpa model paths cannot be empty", provider.ErrInvalidConfig)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: sherpa model file %s: %v", provider.ErrInvalidConfig, path, err)
		}
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 4
	}

	sherpaConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: cfg.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Transducer: sherpa.OfflineTransducerModelConfig{
				Encoder: cfg.EncoderPath,
				Decoder: cfg.DecoderPath,
				Joiner:  cfg.JoinerPath,
			},
			Tokens:     cfg.TokensPath,
			NumThreads: cfg.NumThreads,
			Debug:      0,
		},
	}

	recognizer := sherpa.NewOfflineRecognizer(&sherpaConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("%w: failed to create offline recognizer", provider.ErrInvalidConfig)
	}

	return &Provider{
		cfg:        cfg,
		recognizer: recognizer,
		logger:     logger.With(slog.String("component", "sherpa_provider")),
	}, nil
}

// Transcribe implements provider.STTProvider. It decodes the WAV payload,
// resamples nothing (the recognizer handles rate conversion from the
// declared sample rate), and runs one offline decode pass.
func (p *Provider) Transcribe(
	ctx context.Context,
	audio []byte,
	opts provider.TranscribeOptions,
) (*provider.TranscriptResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: %w", provider.ErrSTTFailure, provider.ErrEmptyAudio)
	}
	if int64(len(audio)) > p.MaxFileSize() {
		return nil, fmt.Errorf("%w: %w", provider.ErrSTTFailure, provider.ErrFileTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", provider.ErrSTTFailure, provider.ErrTransient, err)
	}

	samples, sampleRate, err := decodeWAV(audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", provider.ErrSTTFailure, provider.ErrUnsupportedFormat, err)
	}

	p.logger.Debug("decoding audio",
		slog.Int("sample_count", len(samples)),
		slog.Int("sample_rate", sampleRate))

	stream := sherpa.NewOfflineStream(p.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	p.recognizer.Decode(stream)
	result := stream.GetResult()

	if result == nil || result.Text == "" {
		return nil, fmt.Errorf("%w: recognizer produced no text", provider.ErrSTTFailure)
	}

	language := opts.Language
	if language == "" {
		language = p.cfg.Language
	}

	return &provider.TranscriptResult{
		Text:     result.Text,
		Language: language,
		// The offline transducer API does not expose per-utterance
		// confidence; report a fixed high value for non-empty output.
		Confidence: 0.9,
	}, nil
}

// SupportedFormats implements provider.STTProvider.
func (p *Provider) SupportedFormats() []string {
	return []string{"audio/wav", "audio/x-wav"}
}

// MaxFileSize implements provider.STTProvider.
func (p *Provider) MaxFileSize() int64 {
	return maxAudioBytes
}

// Name implements provider.STTProvider.
func (p *Provider) Name() string {
	return provider.NameSherpa
}

// Close releases the native recognizer.
func (p *Provider) Close() error {
	if p.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(p.recognizer)
		p.recognizer = nil
	}
	return nil
}
