package speechtotext

import "github.com/koscakluka/ema-hal/core/audio"

const DefaultLanguage = "en-US"

// Hypothesis is one recognition candidate. Interim hypotheses may still
// change; final ones will not.
type Hypothesis struct {
	Text    string
	IsFinal bool
}

type RecognitionOptions struct {
	// ResultCallback receives the hypotheses of one recognition event.
	ResultCallback func(hypotheses []Hypothesis)
	// ErrorCallback receives a recognizer specific error code. The
	// recognition pass is over once it is called.
	ErrorCallback func(code string)
	// EndCallback is called when the recognition pass ends.
	EndCallback func()

	Language       string
	Continuous     bool
	InterimResults bool

	EncodingInfo audio.EncodingInfo
}

type RecognitionOption func(*RecognitionOptions)

// NewRecognitionOptions applies opts over the defaults.
func NewRecognitionOptions(opts ...RecognitionOption) RecognitionOptions {
	options := RecognitionOptions{
		ResultCallback: func([]Hypothesis) {},
		ErrorCallback:  func(string) {},
		EndCallback:    func() {},
		Language:       DefaultLanguage,
		InterimResults: true,
		EncodingInfo:   audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithResultCallback(callback func(hypotheses []Hypothesis)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.ResultCallback = callback
		}
	}
}

func WithErrorCallback(callback func(code string)) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}

func WithEndCallback(callback func()) RecognitionOption {
	return func(o *RecognitionOptions) {
		if callback != nil {
			o.EndCallback = callback
		}
	}
}

func WithLanguage(language string) RecognitionOption {
	return func(o *RecognitionOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

// WithContinuous keeps the recognition pass open after the first final
// result instead of ending it.
func WithContinuous(continuous bool) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.Continuous = continuous
	}
}

func WithInterimResults(interimResults bool) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.InterimResults = interimResults
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) RecognitionOption {
	return func(o *RecognitionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
