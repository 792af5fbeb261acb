// Package openai generates replies directly from the OpenAI chat completions
// API. It produces text only; replies never carry audio.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/koscakluka/ema-hal/core/generation"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultURL          = "https://api.openai.com/v1/chat/completions"
	DefaultModel        = "gpt-3.5-turbo"
	DefaultSystemPrompt = "You are HAL 9000. Speak in a calm, eerily polite tone."
	DefaultTemperature  = 0.5
	DefaultTopP         = 0.8
	DefaultMaxTokens    = 72
	DefaultTimeout      = 20 * time.Second

	maxResponseSize = 1 << 20
)

var ErrMissingAPIKey = errors.New("openai api key is not set")

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithURL(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithSampling(temperature, topP float64) ClientOption {
	return func(c *Client) {
		c.temperature = temperature
		c.topP = topP
	}
}

func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) { c.maxTokens = maxTokens }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds a whole request. Zero disables the timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

type Client struct {
	apiKey       string
	url          string
	model        string
	systemPrompt string
	temperature  float64
	topP         float64
	maxTokens    int

	httpClient *http.Client
}

// NewClient builds a chat completions transport. The API key falls back to
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		apiKey:       os.Getenv("OPENAI_API_KEY"),
		url:          DefaultURL,
		model:        DefaultModel,
		systemPrompt: DefaultSystemPrompt,
		temperature:  DefaultTemperature,
		topP:         DefaultTopP,
		maxTokens:    DefaultMaxTokens,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return c, nil
}

func (c *Client) Generate(ctx context.Context, utterance string) (generation.Reply, error) {
	ctx, span := tracer.Start(ctx, "openai generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", c.model))

	text, err := c.complete(ctx, utterance)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return generation.Reply{}, err
	}

	span.SetAttributes(attribute.Int("reply.length", len(text)))
	return generation.Reply{Text: text}, nil
}

func (c *Client) complete(ctx context.Context, utterance string) (string, error) {
	reqBody := requestBody{
		Model:       c.model,
		Messages:    toMessages(c.systemPrompt, utterance),
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: error creating HTTP request: %w", generation.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: error sending request: %w", generation.ErrTransport, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: error reading response body: %w", generation.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorBody
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("%w: non-OK HTTP status: %s: %s", generation.ErrTransport, resp.Status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("%w: non-OK HTTP status: %s", generation.ErrTransport, resp.Status)
	}

	var respBody responseBody
	if err := json.Unmarshal(bodyBytes, &respBody); err != nil {
		return "", fmt.Errorf("%w: error unmarshalling response body: %w", generation.ErrInvalidResponse, err)
	}
	if len(respBody.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", generation.ErrInvalidResponse)
	}

	choice := respBody.Choices[0]
	if choice.FinishReason == "length" {
		logger.Debug("reply truncated by token limit", "max_tokens", c.maxTokens)
	}
	return strings.TrimSpace(choice.Message.Content), nil
}
