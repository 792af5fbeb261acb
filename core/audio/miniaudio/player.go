package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-hal/core/audio"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultFetchTimeout = 30 * time.Second

type PlayerOption func(*Player)

func WithHTTPClient(client *http.Client) PlayerOption {
	return func(p *Player) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// Player narrates WAV replies. Load fetches and decodes in the background so
// it never blocks the caller; Play starts as soon as the audio is ready.
// Errors that happen after Load or Play returned are reported through the
// failure callback.
type Player struct {
	audioContext *malgo.AllocatedContext
	httpClient   *http.Client

	mu       sync.Mutex
	device   *malgo.Device
	encoding audio.EncodingInfo

	// generation identifies the current Load so stale fetches are dropped.
	generation    uint64
	cancelFetch   context.CancelFunc
	current       *clip
	playRequested bool
	onFailure     func(ref string, err error)

	// audioMu guards the data read by the device callback. It is never held
	// while starting or stopping the device.
	audioMu   sync.Mutex
	remaining []byte
	muted     bool
}

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	audioCtx, err := initContext()
	if err != nil {
		return nil, err
	}

	p := &Player{
		audioContext: audioCtx,
		httpClient: &http.Client{
			Timeout:   defaultFetchTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		onFailure: func(string, error) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Player) SetFailureCallback(callback func(ref string, err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if callback == nil {
		callback = func(string, error) {}
	}
	p.onFailure = callback
}

// Load replaces the current audio with the one behind ref.
func (p *Player) Load(ref string) error {
	if ref == "" {
		return errors.New("empty audio reference")
	}

	p.mu.Lock()
	p.resetLocked()
	p.generation++
	generation := p.generation
	ctx, cancel := context.WithCancel(context.Background())
	p.cancelFetch = cancel
	p.mu.Unlock()

	go p.fetch(ctx, generation, ref)
	return nil
}

func (p *Player) fetch(ctx context.Context, generation uint64, ref string) {
	ctx, span := tracer.Start(ctx, "load audio")
	defer span.End()
	span.SetAttributes(attribute.String("audio.ref", ref))

	data, err := fetchClip(ctx, p.httpClient, ref)
	var decoded clip
	if err == nil {
		decoded, err = decodeClip(data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		return
	}
	if err != nil {
		p.failLocked(ref, fmt.Errorf("failed to load %s: %w", ref, err))
		return
	}

	p.current = &decoded
	p.setRemaining(decoded.pcm)
	span.SetAttributes(attribute.Int64("audio.duration_ms", decoded.encoding.Duration(len(decoded.pcm)).Milliseconds()))
	if p.playRequested {
		if err := p.startLocked(); err != nil {
			p.failLocked(ref, err)
		}
	}
}

// Play starts the loaded audio, or marks it to start once loading finishes.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.generation == 0 {
		return errors.New("no audio loaded")
	}
	p.playRequested = true
	if p.current == nil {
		return nil
	}
	return p.startLocked()
}

// Mute silences output without pausing it.
func (p *Player) Mute(muted bool) {
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	p.muted = muted
}

func (p *Player) setRemaining(pcm []byte) {
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	p.remaining = pcm
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
	p.generation++
}

func (p *Player) Close() error {
	p.mu.Lock()
	p.resetLocked()
	p.uninitDeviceLocked()
	p.mu.Unlock()

	freeContext(p.audioContext)
	return nil
}

func (p *Player) resetLocked() {
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}
	p.current = nil
	p.setRemaining(nil)
	p.playRequested = false
	if p.device != nil && p.device.IsStarted() {
		if err := p.device.Stop(); err != nil {
			logger.Warn("failed to stop playback device", "error", err)
		}
	}
}

func (p *Player) startLocked() error {
	if p.device == nil || p.encoding != p.current.encoding {
		p.uninitDeviceLocked()
		if err := p.initDeviceLocked(p.current.encoding); err != nil {
			return err
		}
	}
	if p.device.IsStarted() {
		return nil
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *Player) initDeviceLocked(encoding audio.EncodingInfo) error {
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * encoding.Channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(encoding.SampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(encoding.Channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(encoding.SampleRate / 10) // ~100ms of audio
	config.Periods = 4

	device, err := malgo.InitDevice(p.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: p.processAudio(bytesPerFrame),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	p.device = device
	p.encoding = encoding
	return nil
}

func (p *Player) uninitDeviceLocked() {
	if p.device == nil {
		return
	}
	p.device.Uninit()
	p.device = nil
	p.encoding = audio.EncodingInfo{}
}

func (p *Player) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		p.audioMu.Lock()
		defer p.audioMu.Unlock()

		n := min(need, len(p.remaining), len(pOutput))
		if !p.muted {
			copy(pOutput, p.remaining[:n])
		}
		clear(pOutput[n:])
		if p.muted {
			clear(pOutput[:n])
		}
		p.remaining = p.remaining[n:]
	}
}

func (p *Player) failLocked(ref string, err error) {
	logger.Warn("audio playback failed", "audio_ref", ref, "error", err)
	p.current = nil
	p.setRemaining(nil)
	p.playRequested = false

	onFailure := p.onFailure
	go onFailure(ref, err)
}
