// Package llm provides the generative text backends used by the analysis pipeline.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// Provider names accepted by New
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	// DefaultOpenAIBaseURL is the Gemini OpenAI-compatible endpoint
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultOpenAIModel   = "gemini-2.5-flash"
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.1"
	DefaultTimeout       = 60 * time.Second

	maxResponseBytes = 4 << 20
	maxErrBodyBytes  = 1 << 10
	logPreviewBytes  = 500
)

// Config configures a generative backend
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// New builds the backend named by cfg.Provider
func New(cfg Config, logger *zap.Logger) (domain.TextGenerator, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: api key required for provider %s", ProviderOpenAI)
		}
		return NewOpenAIClient(cfg, logger), nil
	case ProviderOllama:
		return NewOllamaClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// postJSON sends body to url and decodes a 2xx response into out. Every
// failure is wrapped in domain.ErrUpstreamUnavailable.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

// preview truncates s for debug logging
func preview(s string) string {
	if len(s) <= logPreviewBytes {
		return s
	}
	return s[:logPreviewBytes] + "..."
}
