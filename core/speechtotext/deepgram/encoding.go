package deepgram

import (
	"fmt"

	"github.com/koscakluka/ema-hal/core/audio"
)

// encodingParams holds the stream description sent to the listen endpoint.
type encodingParams struct {
	SampleRate int
	Encoding   string
	Channels   int
}

func convertEncoding(encoding audio.EncodingInfo) (encodingParams, error) {
	params := encodingParams{Channels: encoding.Channels}
	if params.Channels <= 0 {
		params.Channels = 1
	}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
		params.SampleRate = encoding.SampleRate
	default:
		return encodingParams{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		params.Encoding = encoding.Format.Name()
	case audio.EncodingALaw, audio.EncodingMulaw:
		if params.SampleRate != 8000 {
			return encodingParams{}, fmt.Errorf("unsupported sample rate %d for %s encoding", params.SampleRate, encoding.Format.Name())
		}
		params.Encoding = encoding.Format.Name()
	default:
		return encodingParams{}, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return params, nil
}
