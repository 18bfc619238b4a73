package openfoodfacts

import (
	"math"

	"github.com/foodlog/backend/internal/domain"
)

const kilojoulesPerKilocalorie = 4.184

// Product is the subset of an Open Food Facts product used for search results
type Product struct {
	Code          string                 `json:"code"`
	ProductName   string                 `json:"product_name"`
	ProductNameEn string                 `json:"product_name_en"`
	GenericName   string                 `json:"generic_name"`
	Brands        string                 `json:"brands"`
	URL           string                 `json:"url"`
	Nutriments    map[string]interface{} `json:"nutriments"`
}

// SearchResponse is the response of the search.pl endpoint
type SearchResponse struct {
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Products []Product `json:"products"`
}

// Name returns the best available product name
func (p Product) Name() string {
	switch {
	case p.ProductName != "":
		return p.ProductName
	case p.ProductNameEn != "":
		return p.ProductNameEn
	default:
		return p.GenericName
	}
}

// Per100 extracts per-100 g macros. Missing or implausible values are 0.
func (p Product) Per100() domain.Macros {
	kcal, ok := nutriment(p.Nutriments, "energy-kcal_100g", 0, 10000)
	if !ok {
		if kj, ok := nutriment(p.Nutriments, "energy-kj_100g", 0, 10000*kilojoulesPerKilocalorie); ok {
			kcal = kj / kilojoulesPerKilocalorie
		}
	}
	protein, _ := nutriment(p.Nutriments, "proteins_100g", 0, 100)
	carbs, _ := nutriment(p.Nutriments, "carbohydrates_100g", 0, 100)
	fat, _ := nutriment(p.Nutriments, "fat_100g", 0, 100)

	return domain.Macros{Calories: kcal, Protein: protein, Carbs: carbs, Fat: fat}
}

// nutriment reads key from the nutriments map if it lies within [min, max]
func nutriment(m map[string]interface{}, key string, min, max float64) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	f := domain.Coerce(v)
	if math.IsNaN(f) || f < min || f > max {
		return 0, false
	}
	return f, true
}
