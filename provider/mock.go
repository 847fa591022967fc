package provider

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a mock AI provider for testing. It is safe for concurrent
// use.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation

	// Transform, when set, handles texts missing from Translations.
	Transform func(text string) string

	// Errors are returned, in order, by the first calls.
	Errors []error

	mu          sync.Mutex
	callCount   int
	lastRequest *TranslateRequest
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":           "Hola",
			"World":           "Mundo",
			"Hello World":     "Hola Mundo",
			"New Game":        "Nueva partida",
			"Load Game":       "Cargar partida",
			"Quit to Desktop": "Salir al escritorio",
		},
	}
}

// Translate returns mock translations. Unknown texts come back bracketed,
// which keeps any markers intact.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	call := m.callCount
	m.callCount++
	m.lastRequest = &req
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call < len(m.Errors) && m.Errors[call] != nil {
		return nil, m.Errors[call]
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		switch translation, ok := m.Translations[text]; {
		case ok:
			results[i] = translation
		case m.Transform != nil:
			results[i] = m.Transform(text)
		default:
			results[i] = fmt.Sprintf("[%s]", text)
		}
	}

	return results, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

// Verify MockProvider implements AIProvider
var _ AIProvider = (*MockProvider)(nil)
