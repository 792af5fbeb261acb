package miniaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/koscakluka/ema-hal/core/audio"
)

var ErrInvalidAudio = errors.New("invalid wav audio")

const maxClipSize = 64 << 20

// clip is decoded narration as interleaved little-endian 16-bit PCM.
type clip struct {
	pcm      []byte
	encoding audio.EncodingInfo
}

// fetchClip reads ref over HTTP(S) or from the local filesystem.
func fetchClip(ctx context.Context, client *http.Client, ref string) ([]byte, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid audio reference %q: %w", ref, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build audio request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch audio: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch audio: unexpected status %s", resp.Status)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}
		return data, nil
	case "file":
		return os.ReadFile(parsed.Path)
	case "":
		return os.ReadFile(ref)
	default:
		return nil, fmt.Errorf("unsupported audio reference scheme %q", parsed.Scheme)
	}
}

func decodeClip(data []byte) (clip, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return clip{}, ErrInvalidAudio
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return clip{}, fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}
	if buffer.Format == nil || buffer.Format.SampleRate <= 0 || buffer.Format.NumChannels <= 0 {
		return clip{}, fmt.Errorf("%w: missing format", ErrInvalidAudio)
	}

	pcm, err := toLinear16(buffer)
	if err != nil {
		return clip{}, err
	}

	return clip{
		pcm: pcm,
		encoding: audio.EncodingInfo{
			SampleRate: buffer.Format.SampleRate,
			Format:     audio.EncodingLinear16,
			Channels:   buffer.Format.NumChannels,
		},
	}, nil
}

func toLinear16(buffer *goaudio.IntBuffer) ([]byte, error) {
	pcm := make([]byte, len(buffer.Data)*2)
	for i, sample := range buffer.Data {
		var value int16
		switch buffer.SourceBitDepth {
		case 8:
			value = int16((sample - 128) << 8)
		case 16:
			value = int16(sample)
		case 24:
			value = int16(sample >> 8)
		case 32:
			value = int16(sample >> 16)
		default:
			return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidAudio, buffer.SourceBitDepth)
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(value))
	}
	return pcm, nil
}
