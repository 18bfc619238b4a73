package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foodlog/backend/internal/domain"
)

const (
	// DefaultBaseURL is the FoodData Central API root
	DefaultBaseURL = "https://api.nal.usda.gov/fdc"

	maxAttempts     = 3
	maxBodyBytes    = 4 << 20
	maxErrBodyBytes = 1 << 10
	defaultPageSize = 10
)

// errRetryable marks a failure worth another attempt
var errRetryable = errors.New("retryable")

// Client handles communication with the USDA FoodData Central API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new USDA API client
func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// USDA allows 1000 requests per hour
	// rate.Limit is requests per second, so 1000/3600 ≈ 0.278 requests/sec
	limiter := rate.NewLimiter(rate.Limit(0.278), 10) // burst of 10 requests

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
		logger:      logger.Named("usda"),
	}
}

// SetDebug enables logging of every request and response summary
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(msg string, fields ...zap.Field) {
	if c.debug {
		c.logger.Info(msg, fields...)
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// Search returns escalation candidates for query. No matches is (nil, nil).
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.EscalationCandidate, error) {
	resp, err := c.SearchFoods(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Foods) == 0 {
		return nil, nil
	}

	candidates := make([]domain.EscalationCandidate, 0, len(resp.Foods))
	for _, food := range resp.Foods {
		candidates = append(candidates, MapToCandidate(food))
	}
	return candidates, nil
}

// SearchFoods searches for foods in the USDA database. A 404 or an empty
// result list returns a nil response and no error.
func (c *Client) SearchFoods(ctx context.Context, query string, pageSize int) (*SearchResponse, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	params := url.Values{}
	params.Add("query", query)
	params.Add("api_key", c.apiKey)
	params.Add("dataType", "Survey (FNDDS),Foundation,SR Legacy,Branded")
	params.Add("pageSize", strconv.Itoa(pageSize))
	reqURL := fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode())

	c.debugLog("searching foods", zap.String("query", query), zap.Int("page_size", pageSize))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrUpstreamUnavailable, err)
		}

		body, err := c.get(ctx, reqURL)
		if err == nil {
			return c.decodeSearch(body, query)
		}
		if errors.Is(err, domain.ErrKeyNotFound) {
			c.debugLog("no foods found", zap.String("query", query))
			return nil, nil
		}
		if !errors.Is(err, errRetryable) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("search request failed",
			zap.Int("attempt", attempt),
			zap.String("query", query),
			zap.Error(err),
		)
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, exponentialBackoff(attempt)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
	}

	return nil, lastErr
}

func (c *Client) decodeSearch(body []byte, query string) (*SearchResponse, error) {
	var searchResp SearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamUnavailable, err)
	}
	if len(searchResp.Foods) == 0 {
		c.debugLog("no foods found", zap.String("query", query))
		return nil, nil
	}

	c.debugLog("found foods", zap.String("query", query), zap.Int("count", len(searchResp.Foods)))
	return &searchResp, nil
}

// get executes a GET request. 404 maps to domain.ErrKeyNotFound, transport
// failures, 429 and 5xx are wrapped with errRetryable.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "FoodLog/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrUpstreamUnavailable, errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := readLimitedBody(resp.Body, maxBodyBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: read body: %v", domain.ErrUpstreamUnavailable, errRetryable, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrKeyNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := readLimitedBody(resp.Body, maxErrBodyBytes)
		return nil, fmt.Errorf("%w: %w: status %d: %s", domain.ErrUpstreamUnavailable, errRetryable, resp.StatusCode, body)
	default:
		body, _ := readLimitedBody(resp.Body, maxErrBodyBytes)
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, body)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
