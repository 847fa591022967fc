package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ZaguanLabs/modtl"
)

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey      string        // Google AI API key
	Model       string        // Model to use (default: "gemini-2.5-flash")
	Temperature float32       // Temperature for generation (default: 0.3)
	BaseURL     string        // default: https://generativelanguage.googleapis.com
	Timeout     time.Duration // Per-request timeout (default: 60s)
	HTTPClient  *http.Client  // Overrides the client built from Timeout
}

// GeminiProvider implements AIProvider using the Generative Language REST
// API. Error bodies carry google.rpc RetryInfo and QuotaFailure details,
// which end up as retry hints on the returned ProviderError.
type GeminiProvider struct {
	hc          *http.Client
	endpoint    string
	apiKey      string
	temperature float32
	now         func() time.Time
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &GeminiProvider{
		hc:          hc,
		endpoint:    base + "/v1beta/models/" + url.PathEscape(model) + ":generateContent",
		apiKey:      cfg.APIKey,
		temperature: temperature,
		now:         time.Now,
	}
}

type gmPart struct {
	Text string `json:"text"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float32 `json:"temperature,omitempty"`
}

type gmRequest struct {
	SystemInstruction *gmContent          `json:"systemInstruction,omitempty"`
	Contents          []gmContent         `json:"contents"`
	GenerationConfig  *gmGenerationConfig `json:"generationConfig,omitempty"`
}

type gmResponse struct {
	Candidates []struct {
		Content      gmContent `json:"content"`
		FinishReason string    `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Translate translates a batch of texts with a single generateContent call.
func (p *GeminiProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(gmRequest{
		SystemInstruction: &gmContent{Parts: []gmPart{{Text: buildSystemPrompt(req)}}},
		Contents:          []gmContent{{Role: "user", Parts: []gmPart{{Text: buildUserMessage(req)}}}},
		GenerationConfig:  &gmGenerationConfig{ResponseMIMEType: "application/json", Temperature: p.temperature},
	})
	if err != nil {
		return nil, modtl.NewFatalError("encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, modtl.NewFatalError("build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", modtl.UserAgent())
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, modtl.Classify(err)
		}
		return nil, modtl.NewNetworkError("Gemini request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, modtl.FromHTTPResponse(resp.StatusCode, resp.Header, slurp, p.now())
	}

	var gr gmResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, modtl.NewNetworkError("decode Gemini response", err)
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return nil, modtl.NewFatalError("prompt blocked: "+gr.PromptFeedback.BlockReason, nil)
	}
	if len(gr.Candidates) == 0 {
		return nil, modtl.NewNetworkError("no candidates in Gemini response", nil)
	}

	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return parseTranslations(text.String(), len(req.Texts))
}

// Verify GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)
