package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/core/audio"
	"github.com/koscakluka/ema-hal/core/audio/miniaudio"
	"github.com/koscakluka/ema-hal/core/audio/portaudio"
	"github.com/koscakluka/ema-hal/core/generation/hal"
	"github.com/koscakluka/ema-hal/core/generation/openai"
	"github.com/koscakluka/ema-hal/core/speechtotext"
	"github.com/koscakluka/ema-hal/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-hal/internal/config"
)

type captureSource interface {
	audio.Source
	io.Closer
}

type wiring struct {
	speech bool
	audio  bool
}

// buildDialogue assembles a dialogue from cfg. Missing speech or audio
// hardware is logged and the dialogue runs without that capability. The
// returned cleanup releases what Dialogue.Close does not own.
func buildDialogue(ctx context.Context, cfg config.Config, w wiring, logger *slog.Logger, opts ...dialogue.Option) (*dialogue.Dialogue, func(), error) {
	transport, err := buildTransport(cfg.Generation)
	if err != nil {
		return nil, nil, err
	}

	dialogueOpts := []dialogue.Option{
		dialogue.WithTransport(transport),
		dialogue.WithRevealSpeed(cfg.Reveal.Speed()),
		dialogue.WithMuted(cfg.Audio.Muted),
	}
	cleanup := func() {}

	if w.audio && cfg.Audio.Enabled {
		player, err := miniaudio.NewPlayer()
		if err != nil {
			logger.Warn("audio playback unavailable", slog.String("error", err.Error()))
		} else {
			dialogueOpts = append(dialogueOpts, dialogue.WithAudioPlayer(player))
		}
	}

	if w.speech && cfg.Speech.Enabled {
		recognizer, source, err := buildRecognizer(cfg.Speech)
		if err != nil {
			logger.Warn("speech capture unavailable", slog.String("error", err.Error()))
		} else {
			dialogueOpts = append(dialogueOpts,
				dialogue.WithRecognizer(recognizer),
				dialogue.WithRecognitionOptions(
					speechtotext.WithLanguage(cfg.Speech.Language),
					speechtotext.WithContinuous(cfg.Speech.Continuous),
					speechtotext.WithInterimResults(cfg.Speech.InterimResults),
				),
			)
			cleanup = func() {
				if err := source.Close(); err != nil {
					logger.Warn("failed to close audio source", slog.String("error", err.Error()))
				}
			}
		}
	}

	logger.InfoContext(ctx, "dialogue configured",
		slog.String("generation_mode", cfg.Generation.Mode),
		slog.Bool("speech", w.speech && cfg.Speech.Enabled),
		slog.Bool("audio", w.audio && cfg.Audio.Enabled),
	)
	return dialogue.New(append(dialogueOpts, opts...)...), cleanup, nil
}

func buildTransport(cfg config.GenerationConfig) (dialogue.Transport, error) {
	switch cfg.Mode {
	case "hal":
		client, err := hal.NewClient(cfg.BaseURL, hal.WithTimeout(cfg.Timeout()))
		if err != nil {
			return nil, fmt.Errorf("failed to create hal client: %w", err)
		}
		return client, nil
	case "openai":
		opts := []openai.ClientOption{
			openai.WithModel(cfg.OpenAIModel),
			openai.WithSystemPrompt(cfg.SystemPrompt),
			openai.WithSampling(cfg.Temperature, cfg.TopP),
			openai.WithMaxTokens(cfg.MaxTokens),
			openai.WithTimeout(cfg.Timeout()),
		}
		if cfg.OpenAIAPIKey != "" {
			opts = append(opts, openai.WithAPIKey(cfg.OpenAIAPIKey))
		}
		client, err := openai.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generation mode %q", cfg.Mode)
	}
}

func buildRecognizer(cfg config.SpeechConfig) (*deepgram.Recognizer, captureSource, error) {
	source, err := buildCaptureSource(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []deepgram.RecognizerOption{deepgram.WithModel(cfg.DeepgramModel)}
	if cfg.DeepgramAPIKey != "" {
		opts = append(opts, deepgram.WithAPIKey(cfg.DeepgramAPIKey))
	}
	recognizer, err := deepgram.NewRecognizer(source, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, source.Close())
	}
	return recognizer, source, nil
}

func buildCaptureSource(cfg config.SpeechConfig) (captureSource, error) {
	if cfg.CaptureBackend == "miniaudio" {
		capture, err := miniaudio.NewCapture(cfg.SampleRate)
		if err != nil {
			return nil, err
		}
		return capture, nil
	}

	client, err := portaudio.NewClient(cfg.SampleRate, cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	return client, nil
}
