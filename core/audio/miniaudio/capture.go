package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-hal/core/audio"
)

// Capture reads 16-bit mono microphone audio from the default input device.
type Capture struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	sampleRate   int

	mu      sync.Mutex
	onAudio func(audio []byte)
}

func NewCapture(sampleRate int) (*Capture, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	audioCtx, err := initContext()
	if err != nil {
		return nil, err
	}

	c := &Capture{audioContext: audioCtx, sampleRate: sampleRate}

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format)

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = uint32(sampleRate / 100 * 3) // 30ms
	config.Periods = 3

	c.device, err = malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			c.mu.Lock()
			onAudio := c.onAudio
			c.mu.Unlock()
			if onAudio != nil {
				chunk := make([]byte, n)
				copy(chunk, pInput[:n])
				onAudio(chunk)
			}
		},
	})
	if err != nil {
		freeContext(audioCtx)
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return c, nil
}

func (c *Capture) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	c.onAudio = onAudio
	c.mu.Unlock()

	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *Capture) StopCapture() error {
	c.mu.Lock()
	c.onAudio = nil
	c.mu.Unlock()

	if !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *Capture) Close() error {
	stopErr := c.StopCapture()
	c.device.Uninit()
	freeContext(c.audioContext)
	return stopErr
}

func (c *Capture) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.sampleRate,
		Format:     audio.EncodingLinear16,
		Channels:   1,
	}
}
