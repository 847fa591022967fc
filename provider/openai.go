package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/sashabaranov/go-openai"
)

// maxErrorBody bounds how much of an error response is kept for hint parsing.
const maxErrorBody = 64 << 10

// OpenAIProvider implements AIProvider using OpenAI's API or any compatible
// endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	now         func() time.Time
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string        // OpenAI API key
	Model       string        // Model to use (default: "gpt-4o-mini")
	Temperature float32       // Temperature for generation (default: 0.3)
	BaseURL     string        // Custom base URL (optional)
	Timeout     time.Duration // Per-request timeout (default: 60s)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	config.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &captureTransport{base: http.DefaultTransport},
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		now:         time.Now,
	}
}

// Translate translates a batch of texts using the chat completions API.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	capture := &responseCapture{}
	ctx = context.WithValue(ctx, captureKey{}, capture)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, p.classify(err, capture)
	}

	if len(resp.Choices) == 0 {
		return nil, modtl.NewNetworkError("no choices in OpenAI response", nil)
	}

	return parseTranslations(resp.Choices[0].Message.Content, len(req.Texts))
}

// classify maps a client error onto the retry taxonomy. A captured error
// response wins because it still carries Retry-After and the raw body.
func (p *OpenAIProvider) classify(err error, capture *responseCapture) error {
	if capture.status != 0 {
		pe := modtl.FromHTTPResponse(capture.status, capture.header, capture.body, p.now())
		pe.Cause = err
		return pe
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return modtl.NewHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return modtl.NewHTTPError(reqErr.HTTPStatusCode, "OpenAI request failed", err)
	}
	return modtl.Classify(err)
}

type captureKey struct{}

// responseCapture records the first non-2xx response of a request.
type responseCapture struct {
	status int
	header http.Header
	body   []byte
}

// captureTransport copies error responses into the request's capture before
// the client library consumes them.
type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode < 400 {
		return resp, err
	}

	capture, ok := req.Context().Value(captureKey{}).(*responseCapture)
	if !ok || capture.status != 0 {
		return resp, nil
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	capture.status = resp.StatusCode
	capture.header = resp.Header.Clone()
	if readErr == nil {
		capture.body = body
	}
	return resp, nil
}

// Verify OpenAIProvider implements AIProvider
var _ AIProvider = (*OpenAIProvider)(nil)
