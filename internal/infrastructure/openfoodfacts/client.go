package openfoodfacts

import (
	"context"
	"encoding/json"
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
	// DefaultBaseURL is the public Open Food Facts server
	DefaultBaseURL = "https://world.openfoodfacts.org"
	// DefaultUserAgent identifies this application as Open Food Facts asks
	DefaultUserAgent = "FoodLog/1.0 (https://github.com/foodlog/backend)"

	maxBodyBytes    = 8 << 20
	maxErrBodyBytes = 1 << 10
	defaultPageSize = 10
)

// Client searches the Open Food Facts product database
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new Open Food Facts client
func NewClient(baseURL, userAgent string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		// search queries are limited to 10 per minute
		rateLimiter: rate.NewLimiter(rate.Every(6*time.Second), 5),
		logger:      logger.Named("openfoodfacts"),
	}
}

// Search returns escalation candidates for query. No matches is (nil, nil).
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.EscalationCandidate, error) {
	resp, err := c.SearchProducts(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.EscalationCandidate, 0, len(resp.Products))
	for _, p := range resp.Products {
		name := p.Name()
		if name == "" {
			continue
		}
		per100 := p.Per100()
		candidates = append(candidates, domain.EscalationCandidate{
			ProductName:       name,
			NutritionPer100:   per100,
			SourceURL:         c.productURL(p),
			CompletenessScore: per100.NonZeroFields(),
		})
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates, nil
}

// SearchProducts runs a full-text product search
func (c *Client) SearchProducts(ctx context.Context, query string, pageSize int) (*SearchResponse, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("fields", "code,product_name,product_name_en,generic_name,brands,url,nutriments")
	reqURL := fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode())

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUpstreamUnavailable, resp.StatusCode, body)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("product search complete",
		zap.String("query", query),
		zap.Int("count", len(searchResp.Products)),
		zap.Duration("duration", time.Since(start)),
	)
	return &searchResp, nil
}

func (c *Client) productURL(p Product) string {
	if p.URL != "" {
		return p.URL
	}
	if p.Code == "" {
		return ""
	}
	return fmt.Sprintf("%s/product/%s", c.baseURL, url.PathEscape(p.Code))
}
