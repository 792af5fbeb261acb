// Package hal is the transport for the HAL backend: POST {base}/generate
// with the utterance, answered with the reply text and a URL of its
// synthesized narration.
package hal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koscakluka/ema-hal/core/generation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second

	maxResponseSize = 1 << 20
)

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds a whole request. Zero disables the timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type generateRequest struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Generate(ctx context.Context, utterance string) (generation.Reply, error) {
	ctx, span := tracer.Start(ctx, "hal generate")
	defer span.End()

	reply, err := c.generate(ctx, utterance)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return generation.Reply{}, err
	}

	span.SetAttributes(
		attribute.Int("reply.length", len(reply.Text)),
		attribute.Bool("reply.has_audio", reply.AudioRef != ""),
	)
	return reply, nil
}

func (c *Client) generate(ctx context.Context, utterance string) (generation.Reply, error) {
	requestBodyBytes, err := json.Marshal(generateRequest{Text: utterance})
	if err != nil {
		return generation.Reply{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "generate"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(requestBodyBytes))
	if err != nil {
		return generation.Reply{}, fmt.Errorf("%w: error creating HTTP request: %w", generation.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return generation.Reply{}, fmt.Errorf("%w: error sending request: %w", generation.ErrTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return generation.Reply{}, fmt.Errorf("%w: error reading response body: %w", generation.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail errorResponse
		if json.Unmarshal(bodyBytes, &detail) == nil && detail.Detail != "" {
			return generation.Reply{}, fmt.Errorf("%w: non-OK HTTP status: %s: %s", generation.ErrTransport, resp.Status, detail.Detail)
		}
		return generation.Reply{}, fmt.Errorf("%w: non-OK HTTP status: %s", generation.ErrTransport, resp.Status)
	}

	var responseBody generateResponse
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return generation.Reply{}, fmt.Errorf("%w: error unmarshalling response body: %w", generation.ErrInvalidResponse, err)
	}

	return generation.Reply{
		Text:     responseBody.Text,
		AudioRef: c.resolveAudioURL(responseBody.AudioURL),
	}, nil
}

// resolveAudioURL makes a relative audio URL absolute against the base URL.
func (c *Client) resolveAudioURL(audioURL string) string {
	if audioURL == "" {
		return ""
	}

	ref, err := url.Parse(audioURL)
	if err != nil {
		logger.Warn("ignoring malformed audio url", "audio_url", audioURL, "error", err)
		return ""
	}
	return c.baseURL.ResolveReference(ref).String()
}
