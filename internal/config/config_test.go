package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.Mode != "hal" {
		t.Fatalf("expected hal mode, got %q", cfg.Generation.Mode)
	}
	if cfg.Reveal.Speed() != 50*time.Millisecond {
		t.Fatalf("expected 50ms reveal speed, got %v", cfg.Reveal.Speed())
	}
	if cfg.Speech.Language != "en-US" || cfg.Speech.Continuous || !cfg.Speech.InterimResults {
		t.Fatalf("unexpected speech defaults %+v", cfg.Speech)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hal.yaml")
	content := `
generation:
  mode: openai
  openai_model: gpt-4o-mini
  timeout_ms: 20000
audio:
  muted: true
reveal:
  speed_ms: 30
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.Mode != "openai" || cfg.Generation.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected generation override, got %+v", cfg.Generation)
	}
	if cfg.Generation.Timeout() != 20*time.Second {
		t.Fatalf("expected 20s timeout, got %v", cfg.Generation.Timeout())
	}
	if !cfg.Audio.Muted {
		t.Fatal("expected muted override")
	}
	if cfg.Reveal.SpeedMS != 30 {
		t.Fatalf("expected reveal speed 30, got %d", cfg.Reveal.SpeedMS)
	}
	if cfg.Generation.TopP != 0.8 {
		t.Fatalf("expected unset keys to keep defaults, got top_p %v", cfg.Generation.TopP)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HAL_GENERATION_MODE", "openai")
	t.Setenv("HAL_GENERATION_TEMPERATURE", "0.9")
	t.Setenv("HAL_SPEECH_ENABLED", "true")
	t.Setenv("HAL_SPEECH_CAPTURE_BACKEND", "miniaudio")
	t.Setenv("HAL_AUDIO_MUTED", "true")
	t.Setenv("HAL_REVEAL_SPEED_MS", "10")
	t.Setenv("HAL_TELEMETRY_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("HAL_SPEECH_SAMPLE_RATE", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.Mode != "openai" || cfg.Generation.Temperature != 0.9 {
		t.Fatalf("expected generation overrides, got %+v", cfg.Generation)
	}
	if !cfg.Speech.Enabled || cfg.Speech.CaptureBackend != "miniaudio" {
		t.Fatalf("expected speech overrides, got %+v", cfg.Speech)
	}
	if cfg.Speech.SampleRate != 16000 {
		t.Fatalf("expected malformed override to be ignored, got %d", cfg.Speech.SampleRate)
	}
	if !cfg.Audio.Muted {
		t.Fatal("expected muted override")
	}
	if cfg.Reveal.SpeedMS != 10 {
		t.Fatalf("expected reveal override, got %d", cfg.Reveal.SpeedMS)
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Fatalf("expected otlp endpoint override, got %q", cfg.Telemetry.OTLPEndpoint)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown mode", mutate: func(c *Config) { c.Generation.Mode = "groq" }},
		{name: "hal without base url", mutate: func(c *Config) { c.Generation.BaseURL = " " }},
		{name: "top_p out of range", mutate: func(c *Config) { c.Generation.Mode = "openai"; c.Generation.TopP = 1.5 }},
		{name: "negative timeout", mutate: func(c *Config) { c.Generation.TimeoutMS = -1 }},
		{name: "unknown capture backend", mutate: func(c *Config) { c.Speech.Enabled = true; c.Speech.CaptureBackend = "alsa" }},
		{name: "zero reveal speed", mutate: func(c *Config) { c.Reveal.SpeedMS = 0 }},
		{name: "unknown log level", mutate: func(c *Config) { c.Telemetry.LogLevel = "verbose" }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := Default()
			testCase.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := validate(Default()); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
