package usda

import (
	"fmt"

	"github.com/foodlog/backend/internal/domain"
)

// USDA Nutrient IDs for key macronutrients
const (
	NutrientIDEnergy         = 1008 // Energy (kcal)
	NutrientIDEnergyAtwater  = 2047 // Energy, Atwater general factors (kcal)
	NutrientIDEnergySpecific = 2048 // Energy, Atwater specific factors (kcal)
	NutrientIDProtein        = 1003 // Protein (g)
	NutrientIDCarbohydrate   = 1005 // Carbohydrate, by difference (g)
	NutrientIDTotalFat       = 1004 // Total lipid (fat) (g)
)

// sourceURLFormat links to the public food details page
const sourceURLFormat = "https://fdc.nal.usda.gov/food-details/%d/nutrients"

// MapToCandidate converts a USDA food to an escalation candidate with
// per-100 g values
func MapToCandidate(food Food) domain.EscalationCandidate {
	per100 := extractNutrients(food.Nutrients)

	name := food.Description
	if food.BrandOwner != "" {
		name = fmt.Sprintf("%s (%s)", food.Description, food.BrandOwner)
	}

	candidate := domain.EscalationCandidate{
		ProductName:       name,
		NutritionPer100:   per100,
		CompletenessScore: per100.NonZeroFields(),
	}
	if food.FdcID > 0 {
		candidate.SourceURL = fmt.Sprintf(sourceURLFormat, food.FdcID)
	}
	return candidate
}

// extractNutrients extracts the key macronutrients from USDA nutrient list
func extractNutrients(nutrients []Nutrient) domain.Macros {
	m := domain.Macros{
		Calories: FindNutrientValue(nutrients, NutrientIDEnergy),
		Protein:  FindNutrientValue(nutrients, NutrientIDProtein),
		Carbs:    FindNutrientValue(nutrients, NutrientIDCarbohydrate),
		Fat:      FindNutrientValue(nutrients, NutrientIDTotalFat),
	}

	// Foundation foods often omit 1008 and report Atwater energy instead
	if m.Calories == 0 {
		m.Calories = FindNutrientValue(nutrients, NutrientIDEnergyAtwater)
	}
	if m.Calories == 0 {
		m.Calories = FindNutrientValue(nutrients, NutrientIDEnergySpecific)
	}

	return m.Sanitized()
}

// FindNutrientValue finds a specific nutrient value by ID
func FindNutrientValue(nutrients []Nutrient, nutrientID int) float64 {
	for _, nutrient := range nutrients {
		if nutrient.NutrientID == nutrientID {
			return nutrient.Value
		}
	}
	return 0.0
}
