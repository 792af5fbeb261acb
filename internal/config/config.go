package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Speech     SpeechConfig     `yaml:"speech"`
	Audio      AudioConfig      `yaml:"audio"`
	Reveal     RevealConfig     `yaml:"reveal"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type GenerationConfig struct {
	Mode         string  `yaml:"mode"`
	BaseURL      string  `yaml:"base_url"`
	TimeoutMS    int     `yaml:"timeout_ms"`
	OpenAIModel  string  `yaml:"openai_model"`
	OpenAIAPIKey string  `yaml:"openai_api_key"`
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"top_p"`
}

type SpeechConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CaptureBackend string `yaml:"capture_backend"`
	DeepgramAPIKey string `yaml:"deepgram_api_key"`
	DeepgramModel  string `yaml:"deepgram_model"`
	Language       string `yaml:"language"`
	Continuous     bool   `yaml:"continuous"`
	InterimResults bool   `yaml:"interim_results"`
	SampleRate     int    `yaml:"sample_rate"`
	BufferSize     int    `yaml:"buffer_size"`
}

type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	Muted   bool `yaml:"muted"`
}

type RevealConfig struct {
	SpeedMS int `yaml:"speed_ms"`
}

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

func (c GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c RevealConfig) Speed() time.Duration {
	return time.Duration(c.SpeedMS) * time.Millisecond
}

func Default() Config {
	return Config{
		Generation: GenerationConfig{
			Mode:         "hal",
			BaseURL:      "http://localhost:8000",
			TimeoutMS:    60000,
			OpenAIModel:  "gpt-3.5-turbo",
			SystemPrompt: "You are HAL 9000. Speak in a calm, eerily polite tone.",
			MaxTokens:    72,
			Temperature:  0.5,
			TopP:         0.8,
		},
		Speech: SpeechConfig{
			Enabled:        false,
			CaptureBackend: "portaudio",
			DeepgramModel:  "nova-3",
			Language:       "en-US",
			Continuous:     false,
			InterimResults: true,
			SampleRate:     16000,
			BufferSize:     1024,
		},
		Audio: AudioConfig{
			Enabled: true,
			Muted:   false,
		},
		Reveal: RevealConfig{
			SpeedMS: 50,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			LogFile:      "hal.log",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Generation.Mode, "HAL_GENERATION_MODE")
	overrideString(&cfg.Generation.BaseURL, "HAL_GENERATION_BASE_URL")
	overrideInt(&cfg.Generation.TimeoutMS, "HAL_GENERATION_TIMEOUT_MS")
	overrideString(&cfg.Generation.OpenAIModel, "HAL_GENERATION_OPENAI_MODEL")
	overrideString(&cfg.Generation.OpenAIAPIKey, "HAL_GENERATION_OPENAI_API_KEY")
	overrideString(&cfg.Generation.SystemPrompt, "HAL_GENERATION_SYSTEM_PROMPT")
	overrideInt(&cfg.Generation.MaxTokens, "HAL_GENERATION_MAX_TOKENS")
	overrideFloat(&cfg.Generation.Temperature, "HAL_GENERATION_TEMPERATURE")
	overrideFloat(&cfg.Generation.TopP, "HAL_GENERATION_TOP_P")
	overrideBool(&cfg.Speech.Enabled, "HAL_SPEECH_ENABLED")
	overrideString(&cfg.Speech.CaptureBackend, "HAL_SPEECH_CAPTURE_BACKEND")
	overrideString(&cfg.Speech.DeepgramAPIKey, "HAL_SPEECH_DEEPGRAM_API_KEY")
	overrideString(&cfg.Speech.DeepgramModel, "HAL_SPEECH_DEEPGRAM_MODEL")
	overrideString(&cfg.Speech.Language, "HAL_SPEECH_LANGUAGE")
	overrideBool(&cfg.Speech.Continuous, "HAL_SPEECH_CONTINUOUS")
	overrideBool(&cfg.Speech.InterimResults, "HAL_SPEECH_INTERIM_RESULTS")
	overrideInt(&cfg.Speech.SampleRate, "HAL_SPEECH_SAMPLE_RATE")
	overrideInt(&cfg.Speech.BufferSize, "HAL_SPEECH_BUFFER_SIZE")
	overrideBool(&cfg.Audio.Enabled, "HAL_AUDIO_ENABLED")
	overrideBool(&cfg.Audio.Muted, "HAL_AUDIO_MUTED")
	overrideInt(&cfg.Reveal.SpeedMS, "HAL_REVEAL_SPEED_MS")
	overrideString(&cfg.Telemetry.LogLevel, "HAL_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFile, "HAL_TELEMETRY_LOG_FILE")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "HAL_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "HAL_TELEMETRY_OTLP_INSECURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	switch cfg.Generation.Mode {
	case "hal":
		if strings.TrimSpace(cfg.Generation.BaseURL) == "" {
			return errors.New("generation.base_url must be set when mode=hal")
		}
	case "openai":
		if cfg.Generation.OpenAIModel == "" {
			return errors.New("generation.openai_model must be set when mode=openai")
		}
		if cfg.Generation.MaxTokens < 0 {
			return errors.New("generation.max_tokens must be >= 0")
		}
		if cfg.Generation.Temperature < 0 || cfg.Generation.Temperature > 2 {
			return errors.New("generation.temperature must be between 0 and 2")
		}
		if cfg.Generation.TopP < 0 || cfg.Generation.TopP > 1 {
			return errors.New("generation.top_p must be between 0 and 1")
		}
	default:
		return errors.New("generation.mode must be one of hal|openai")
	}
	if cfg.Generation.TimeoutMS < 0 {
		return errors.New("generation.timeout_ms must be >= 0")
	}

	if cfg.Speech.Enabled {
		switch cfg.Speech.CaptureBackend {
		case "portaudio", "miniaudio":
		default:
			return errors.New("speech.capture_backend must be one of portaudio|miniaudio")
		}
		if cfg.Speech.SampleRate <= 0 {
			return errors.New("speech.sample_rate must be positive")
		}
		if cfg.Speech.BufferSize <= 0 {
			return errors.New("speech.buffer_size must be positive")
		}
	}

	if cfg.Reveal.SpeedMS <= 0 {
		return errors.New("reveal.speed_ms must be positive")
	}

	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	return nil
}
