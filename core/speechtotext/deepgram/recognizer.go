// Package deepgram implements speech recognition over the Deepgram live
// transcription websocket.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-hal/core/audio"
	"github.com/koscakluka/ema-hal/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultListenURL = "wss://api.deepgram.com/v1/listen"
	DefaultModel     = "nova-3"
)

// Error codes passed to the recognition error callback.
const (
	ErrorCodeNetwork      = "network"
	ErrorCodeAudioCapture = "audio-capture"
)

var (
	ErrMissingAPIKey  = errors.New("deepgram api key not found")
	ErrAlreadyRunning = errors.New("recognition already running")

	// ErrStoppedWhileConnecting is returned by Start when Stop ended the pass
	// before the connection was open. The end callback has already fired.
	ErrStoppedWhileConnecting = errors.New("recognition stopped while connecting")
)

type RecognizerOption func(*Recognizer)

func WithAPIKey(apiKey string) RecognizerOption {
	return func(r *Recognizer) { r.apiKey = apiKey }
}

func WithListenURL(listenURL string) RecognizerOption {
	return func(r *Recognizer) { r.listenURL = listenURL }
}

func WithModel(model string) RecognizerOption {
	return func(r *Recognizer) {
		if model != "" {
			r.model = model
		}
	}
}

func WithDialer(dialer *websocket.Dialer) RecognizerOption {
	return func(r *Recognizer) {
		if dialer != nil {
			r.dialer = dialer
		}
	}
}

// Recognizer streams audio from source to Deepgram and reports hypotheses.
// Without a source, audio must be pushed with SendAudio.
type Recognizer struct {
	source    audio.Source
	apiKey    string
	listenURL string
	model     string
	dialer    *websocket.Dialer

	mu   sync.Mutex
	pass *recognitionPass
}

func NewRecognizer(source audio.Source, opts ...RecognizerOption) (*Recognizer, error) {
	r := &Recognizer{
		source:    source,
		apiKey:    os.Getenv("DEEPGRAM_API_KEY"),
		listenURL: DefaultListenURL,
		model:     DefaultModel,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return r, nil
}

// Start opens one recognition pass. Unless the pass is continuous it ends
// after the first final utterance.
func (r *Recognizer) Start(ctx context.Context, opts ...speechtotext.RecognitionOption) error {
	ctx, span := tracer.Start(ctx, "start deepgram recognition")
	defer span.End()

	options := speechtotext.NewRecognitionOptions(opts...)
	if r.source != nil {
		options.EncodingInfo = r.source.EncodingInfo()
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	passCtx, cancel := context.WithCancel(ctx)
	pass := &recognitionPass{
		recognizer: r,
		options:    options,
		cancel:     cancel,
	}

	// The slot is taken before dialing so Stop can end a pass that is still
	// connecting.
	r.mu.Lock()
	if r.pass != nil {
		r.mu.Unlock()
		cancel()
		return ErrAlreadyRunning
	}
	r.pass = pass
	r.mu.Unlock()

	conn, err := r.connect(passCtx, encoding, options)
	switch {
	case err == nil && !pass.attach(conn):
		_ = conn.Close()
		err = ErrStoppedWhileConnecting
	case err != nil && pass.ended.Load():
		err = ErrStoppedWhileConnecting
	}
	if err != nil {
		pass.shutdown()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("deepgram.model", r.model),
		attribute.String("deepgram.language", options.Language),
	)

	pass.touch()
	go pass.readMessages(passCtx, conn)
	go pass.keepAlive(passCtx, options.EncodingInfo)

	if r.source != nil {
		if err := r.source.StartCapture(passCtx, pass.sendAudio); err != nil {
			pass.shutdown()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to start audio capture: %w", err)
		}
		if pass.ended.Load() {
			if err := r.source.StopCapture(); err != nil {
				logger.Warn("failed to stop audio capture", "error", err)
			}
		}
	}

	return nil
}

// Stop ends the current pass, including one that is still connecting. The
// end callback still fires once.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	pass := r.pass
	r.mu.Unlock()

	if pass != nil {
		pass.end("")
	}
	return nil
}

// SendAudio pushes audio into the current pass.
func (r *Recognizer) SendAudio(audio []byte) error {
	r.mu.Lock()
	pass := r.pass
	r.mu.Unlock()

	if pass == nil {
		return errors.New("recognition not running")
	}
	return pass.write(websocket.BinaryMessage, audio)
}

func (r *Recognizer) Close() error {
	return r.Stop()
}

func (r *Recognizer) release(pass *recognitionPass) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pass == pass {
		r.pass = nil
	}
}

func (r *Recognizer) connect(ctx context.Context, encoding encodingParams, options speechtotext.RecognitionOptions) (*websocket.Conn, error) {
	listenURL, err := url.Parse(r.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}

	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Encoding)
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", strconv.Itoa(encoding.Channels))
	queryParams.Set("model", r.model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", "true")
	// Utterance end detection needs interim results even when they are not
	// forwarded.
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := r.dialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
