package usecase

import (
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

// foodKey identifies a logged food for de-duplication
type foodKey struct {
	name     string
	quantity float64
	unit     string
}

func newFoodKey(item domain.ResolvedFoodItem) foodKey {
	return foodKey{
		name:     strings.ToLower(strings.TrimSpace(item.FoodName)),
		quantity: item.UserQuantity,
		unit:     strings.ToLower(strings.TrimSpace(item.UserUnit)),
	}
}

// MergeFoods appends incoming items to existing, skipping any whose name,
// quantity and unit equal an item already present, including one added
// earlier from the same incoming list. It returns the merged list and the
// number of items added. existing is not modified.
func MergeFoods(existing []domain.LoggedFood, incoming []domain.ResolvedFoodItem, newID func() string) ([]domain.LoggedFood, int) {
	merged := make([]domain.LoggedFood, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	seen := make(map[foodKey]bool, len(merged)+len(incoming))
	for _, f := range existing {
		seen[newFoodKey(f.ResolvedFoodItem)] = true
	}

	added := 0
	for _, item := range incoming {
		key := newFoodKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, domain.LoggedFood{ID: newID(), ResolvedFoodItem: item})
		added++
	}

	return merged, added
}
