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

// OpenAIClient calls an OpenAI-compatible chat completions endpoint
type OpenAIClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	logger      *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient creates a chat completions client
func NewOpenAIClient(cfg Config, logger *zap.Logger) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.Named("openai"),
	}
}

// Generate sends prompt as a single user message and returns the reply text
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	}
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	start := time.Now()
	var resp chatCompletionResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		c.logger.Warn("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrUpstreamUnavailable)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
		zap.String("content", preview(content)),
	)
	return content, nil
}
