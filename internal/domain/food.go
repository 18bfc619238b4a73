package domain

// MatchConfidenceThreshold is the minimum confidence for a mention to be served from the reference table.
const MatchConfidenceThreshold = 0.95

// DefaultUnit is used when neither the user nor any upstream step supplied a unit.
const DefaultUnit = "serving"

// Macros holds the four tracked macro-nutrient values
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"` // grams
	Carbs    float64 `json:"carbs"`   // grams
	Fat      float64 `json:"fat"`     // grams
}

// Scale multiplies every field by factor.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

// Add returns the field-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Sanitized returns a copy where every non-finite or negative field is 0.
func (m Macros) Sanitized() Macros {
	return Macros{
		Calories: NonNegative(m.Calories),
		Protein:  NonNegative(m.Protein),
		Carbs:    NonNegative(m.Carbs),
		Fat:      NonNegative(m.Fat),
	}
}

// NonZeroFields counts the fields holding a non-zero value.
func (m Macros) NonZeroFields() int {
	n := 0
	for _, v := range []float64{m.Calories, m.Protein, m.Carbs, m.Fat} {
		if v != 0 {
			n++
		}
	}
	return n
}

// FoodReference is one row of the reference nutrition database, values per one serving
type FoodReference struct {
	FoodName              string    `json:"food_name"`
	UnitServingEnergyKcal FlexFloat `json:"unit_serving_energy_kcal"`
	UnitServingProteinG   FlexFloat `json:"unit_serving_protein_g"`
	UnitServingCarbG      FlexFloat `json:"unit_serving_carb_g"`
	UnitServingFatG       FlexFloat `json:"unit_serving_fat_g"`
	ServingsUnit          *string   `json:"servings_unit"`
}

// PerServing returns the reference macros for one serving.
func (r FoodReference) PerServing() Macros {
	return Macros{
		Calories: float64(r.UnitServingEnergyKcal),
		Protein:  float64(r.UnitServingProteinG),
		Carbs:    float64(r.UnitServingCarbG),
		Fat:      float64(r.UnitServingFatG),
	}.Sanitized()
}

// ServingUnit returns the serving unit, or DefaultUnit when it is not recorded.
func (r FoodReference) ServingUnit() string {
	if r.ServingsUnit == nil || *r.ServingsUnit == "" {
		return DefaultUnit
	}
	return *r.ServingsUnit
}

// FoodMention is one food phrase detected in the user's free text
type FoodMention struct {
	ID              string  `json:"id"`
	OriginalText    string  `json:"original_text"`
	Quantity        string  `json:"quantity"`
	Unit            string  `json:"unit"`
	MatchedFoodName *string `json:"matched_food_name"`
	NeedsEscalation bool    `json:"needs_escalation"`
	Confidence      float64 `json:"confidence"`
}

// IsMatched reports whether the mention is served from the reference table.
func (m FoodMention) IsMatched() bool {
	return !m.NeedsEscalation && m.MatchedFoodName != nil
}

// Escalate clears any match and routes the mention to enrichment.
func (m *FoodMention) Escalate() {
	m.MatchedFoodName = nil
	m.NeedsEscalation = true
}

// MatchedFood pairs a matched mention with its reference row
type MatchedFood struct {
	FoodMention
	MatchedFood FoodReference `json:"matched_food"`
}

// EscalationCandidate is one product returned by a food-facts search
type EscalationCandidate struct {
	ProductName       string `json:"product_name"`
	NutritionPer100   Macros `json:"nutrition_per_100_mass_units"`
	SourceURL         string `json:"source_url,omitempty"`
	CompletenessScore int    `json:"completeness_score"`
}

// EnrichedFood is the normalized pre-reconciliation record for an escalated mention
type EnrichedFood struct {
	MentionID string
	FoodName  string
	Quantity  float64
	Unit      string

	// PerUnit is nil when the upstream step reported totals only.
	PerUnit *Macros
	Total   Macros

	// Search strategy metadata for the selected candidate, if any.
	Per100       *Macros
	Completeness int

	Note   string
	Source string
}

// ResolvedFoodItem is one fully reconciled food in the pipeline output
type ResolvedFoodItem struct {
	MentionID             string  `json:"mention_id,omitempty"`
	FoodName              string  `json:"food_name"`
	DBServingSize         float64 `json:"db_serving_size"`
	DBServingUnit         string  `json:"db_serving_unit"`
	DBNutritionPerServing Macros  `json:"db_nutrition_per_serving"`
	UserQuantity          float64 `json:"user_quantity"`
	UserUnit              string  `json:"user_unit"`
	TotalNutritionForUser Macros  `json:"total_nutrition_for_user"`
	Note                  string  `json:"note"`
	Source                string  `json:"source,omitempty"`
}

// GoalProgress holds percentage progress for each macro against the daily goals
type GoalProgress struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// UserGoals are the caller-supplied daily targets
type UserGoals struct {
	DailyCalories FlexFloat  `json:"dailyCalories"`
	TargetWeight  *FlexFloat `json:"targetWeight,omitempty"`
}

// AnalyzeRequest is the inbound contract of the analysis pipeline
type AnalyzeRequest struct {
	Text      string     `json:"text" binding:"required"`
	UserGoals *UserGoals `json:"userGoals"`
}

// AnalyzeResult is the value returned by one pipeline invocation
type AnalyzeResult struct {
	Nutrition    []ResolvedFoodItem `json:"nutrition"`
	Progress     GoalProgress       `json:"progress"`
	MatchedFoods []MatchedFood      `json:"matched_foods"`
}
