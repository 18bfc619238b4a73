package usda

import (
	"testing"

	"github.com/foodlog/backend/internal/domain"
)

func TestMapToCandidate(t *testing.T) {
	tests := []struct {
		name string
		food Food
		want domain.EscalationCandidate
	}{
		{
			name: "complete food data",
			food: Food{
				FdcID:       12345,
				Description: "Whole Milk",
				DataType:    "Survey (FNDDS)",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergy, NutrientName: "Energy", Value: 149.0, UnitName: "kcal"},
					{NutrientID: NutrientIDProtein, NutrientName: "Protein", Value: 7.7, UnitName: "g"},
					{NutrientID: NutrientIDCarbohydrate, NutrientName: "Carbohydrate", Value: 11.7, UnitName: "g"},
					{NutrientID: NutrientIDTotalFat, NutrientName: "Total Fat", Value: 7.9, UnitName: "g"},
				},
			},
			want: domain.EscalationCandidate{
				ProductName:       "Whole Milk",
				NutritionPer100:   domain.Macros{Calories: 149.0, Protein: 7.7, Carbs: 11.7, Fat: 7.9},
				SourceURL:         "https://fdc.nal.usda.gov/food-details/12345/nutrients",
				CompletenessScore: 4,
			},
		},
		{
			name: "missing some nutrients",
			food: Food{
				FdcID:       67890,
				Description: "Apple",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergy, Value: 52.0},
					{NutrientID: NutrientIDCarbohydrate, Value: 14.0},
				},
			},
			want: domain.EscalationCandidate{
				ProductName:       "Apple",
				NutritionPer100:   domain.Macros{Calories: 52.0, Carbs: 14.0},
				SourceURL:         "https://fdc.nal.usda.gov/food-details/67890/nutrients",
				CompletenessScore: 2,
			},
		},
		{
			name: "atwater energy fallback",
			food: Food{
				FdcID:       3,
				Description: "Lentils, dry",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergyAtwater, Value: 352},
					{NutrientID: NutrientIDProtein, Value: 23.6},
				},
			},
			want: domain.EscalationCandidate{
				ProductName:       "Lentils, dry",
				NutritionPer100:   domain.Macros{Calories: 352, Protein: 23.6},
				SourceURL:         "https://fdc.nal.usda.gov/food-details/3/nutrients",
				CompletenessScore: 2,
			},
		},
		{
			name: "branded product with negative value",
			food: Food{
				Description: "Protein Bar",
				BrandOwner:  "Acme",
				Nutrients: []Nutrient{
					{NutrientID: NutrientIDEnergy, Value: 380},
					{NutrientID: NutrientIDTotalFat, Value: -1},
				},
			},
			want: domain.EscalationCandidate{
				ProductName:       "Protein Bar (Acme)",
				NutritionPer100:   domain.Macros{Calories: 380},
				CompletenessScore: 1,
			},
		},
		{
			name: "no nutrients",
			food: Food{
				FdcID:       11111,
				Description: "Unknown Food",
				Nutrients:   []Nutrient{},
			},
			want: domain.EscalationCandidate{
				ProductName: "Unknown Food",
				SourceURL:   "https://fdc.nal.usda.gov/food-details/11111/nutrients",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapToCandidate(tt.food)

			if got.ProductName != tt.want.ProductName {
				t.Errorf("ProductName = %v, want %v", got.ProductName, tt.want.ProductName)
			}
			if got.SourceURL != tt.want.SourceURL {
				t.Errorf("SourceURL = %v, want %v", got.SourceURL, tt.want.SourceURL)
			}
			if got.CompletenessScore != tt.want.CompletenessScore {
				t.Errorf("CompletenessScore = %v, want %v", got.CompletenessScore, tt.want.CompletenessScore)
			}
			if got.NutritionPer100 != tt.want.NutritionPer100 {
				t.Errorf("NutritionPer100 = %+v, want %+v", got.NutritionPer100, tt.want.NutritionPer100)
			}
		})
	}
}

func TestFindNutrientValue(t *testing.T) {
	nutrients := []Nutrient{
		{NutrientID: NutrientIDEnergy, Value: 100.0},
		{NutrientID: NutrientIDProtein, Value: 5.0},
		{NutrientID: NutrientIDCarbohydrate, Value: 20.0},
	}

	tests := []struct {
		name       string
		nutrients  []Nutrient
		nutrientID int
		want       float64
	}{
		{
			name:       "find existing nutrient",
			nutrients:  nutrients,
			nutrientID: NutrientIDProtein,
			want:       5.0,
		},
		{
			name:       "nutrient not found",
			nutrients:  nutrients,
			nutrientID: NutrientIDTotalFat,
			want:       0.0,
		},
		{
			name:       "empty nutrient list",
			nutrients:  []Nutrient{},
			nutrientID: NutrientIDEnergy,
			want:       0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindNutrientValue(tt.nutrients, tt.nutrientID)
			if got != tt.want {
				t.Errorf("FindNutrientValue() = %v, want %v", got, tt.want)
			}
		})
	}
}
