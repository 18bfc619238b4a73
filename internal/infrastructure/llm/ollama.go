package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// OllamaClient calls a local Ollama server's chat endpoint
type OllamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	logger      *zap.Logger
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewOllamaClient creates an Ollama chat client
func NewOllamaClient(cfg Config, logger *zap.Logger) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OllamaClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("ollama"),
	}
}

// Generate sends prompt as a non-streaming chat request
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := ollamaChatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	req.Options.Temperature = c.temperature

	start := time.Now()
	var resp ollamaChatResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/api/chat", nil, req, &resp); err != nil {
		c.logger.Warn("ollama chat failed", zap.String("model", c.model), zap.Error(err))
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, resp.Error)
	}
	if !resp.Done {
		return "", fmt.Errorf("%w: incomplete response", domain.ErrUpstreamUnavailable)
	}

	c.logger.Debug("ollama chat",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.String("content", preview(resp.Message.Content)),
	)
	return resp.Message.Content, nil
}
