package usecase

import "github.com/foodlog/backend/internal/domain"

// Macro split of the daily calorie goal and energy per gram
const (
	proteinShare   = 0.25
	carbsShare     = 0.50
	fatShare       = 0.25
	kcalPerGramPro = 4.0
	kcalPerGramCho = 4.0
	kcalPerGramFat = 9.0
)

// SumTotals adds up the user totals of all items.
func SumTotals(items []domain.ResolvedFoodItem) domain.Macros {
	var sum domain.Macros
	for _, item := range items {
		t := item.TotalNutritionForUser
		sum = sum.Add(domain.Macros{
			Calories: domain.Coerce(t.Calories),
			Protein:  domain.Coerce(t.Protein),
			Carbs:    domain.Coerce(t.Carbs),
			Fat:      domain.Coerce(t.Fat),
		})
	}
	return sum
}

// ComputeProgress returns percentage progress of totals against the daily
// calorie goal. Without a positive goal every value is 0.
func ComputeProgress(totals domain.Macros, goals *domain.UserGoals) domain.GoalProgress {
	if goals == nil {
		return domain.GoalProgress{}
	}
	daily := domain.Finite(goals.DailyCalories.Float64())
	if daily <= 0 {
		return domain.GoalProgress{}
	}

	proteinTarget := daily * proteinShare / kcalPerGramPro
	carbsTarget := daily * carbsShare / kcalPerGramCho
	fatTarget := daily * fatShare / kcalPerGramFat

	return domain.GoalProgress{
		Calories: percent(totals.Calories, daily),
		Protein:  percent(totals.Protein, proteinTarget),
		Carbs:    percent(totals.Carbs, carbsTarget),
		Fat:      percent(totals.Fat, fatTarget),
	}
}

// Aggregate computes goal progress for a list of items.
func Aggregate(items []domain.ResolvedFoodItem, goals *domain.UserGoals) domain.GoalProgress {
	return ComputeProgress(SumTotals(items), goals)
}

func percent(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return domain.NonNegative(value / target * 100)
}
