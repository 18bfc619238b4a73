package openfoodfacts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

func TestSearch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/search.pl", r.URL.Path)
		assert.Equal(t, "paneer tikka", r.URL.Query().Get("search_terms"))
		assert.Equal(t, "1", r.URL.Query().Get("json"))
		assert.Equal(t, "process", r.URL.Query().Get("action"))
		assert.Equal(t, "8", r.URL.Query().Get("page_size"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 3,
			"products": [
				{
					"code": "890123",
					"product_name": "Paneer Tikka",
					"nutriments": {
						"energy-kcal_100g": 250,
						"proteins_100g": "14.5",
						"carbohydrates_100g": 6,
						"fat_100g": 19
					}
				},
				{
					"code": "555",
					"product_name_en": "Tikka Masala Sauce",
					"url": "https://world.openfoodfacts.org/product/555/sauce",
					"nutriments": {"energy-kj_100g": 418.4, "fat_100g": 250}
				},
				{"code": "000", "nutriments": {}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-agent", zap.NewNop())

	candidates, err := client.Search(context.Background(), "paneer tikka", 8)

	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Paneer Tikka", candidates[0].ProductName)
	assert.Equal(t, domain.Macros{Calories: 250, Protein: 14.5, Carbs: 6, Fat: 19}, candidates[0].NutritionPer100)
	assert.Equal(t, 4, candidates[0].CompletenessScore)
	assert.Equal(t, server.URL+"/product/890123", candidates[0].SourceURL)

	assert.Equal(t, "Tikka Masala Sauce", candidates[1].ProductName)
	assert.InDelta(t, 100, candidates[1].NutritionPer100.Calories, 1e-9)
	assert.Equal(t, 0.0, candidates[1].NutritionPer100.Fat) // implausible value dropped
	assert.Equal(t, 1, candidates[1].CompletenessScore)
	assert.Equal(t, "https://world.openfoodfacts.org/product/555/sauce", candidates[1].SourceURL)
}

func TestSearch_NoProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(SearchResponse{Products: []Product{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	candidates, err := client.Search(context.Background(), "zzz", 5)

	assert.NoError(t, err)
	assert.Nil(t, candidates)
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	candidates, err := client.Search(context.Background(), "rice", 5)

	assert.Nil(t, candidates)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSearch_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	_, err := client.Search(context.Background(), "rice", 5)

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearch_CancelledContext(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "rice", 5)

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", "", nil)

	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.Equal(t, DefaultUserAgent, client.userAgent)
	assert.NotNil(t, client.rateLimiter)
}

func TestProduct_Name(t *testing.T) {
	assert.Equal(t, "A", Product{ProductName: "A", ProductNameEn: "B"}.Name())
	assert.Equal(t, "B", Product{ProductNameEn: "B", GenericName: "C"}.Name())
	assert.Equal(t, "C", Product{GenericName: "C"}.Name())
	assert.Equal(t, "", Product{}.Name())
}
