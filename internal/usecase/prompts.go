package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/foodlog/backend/internal/domain"
)

const matchPromptTemplate = `You are a food matching expert. Your task is to:
1. Parse the following food intake text and identify individual food items and their quantities.
2. Match each food item with the closest item from the provided list of food names.
3. Only match if the food item is an exact or very close match (95%% confidence or more).
4. For any food item that is not in the list, has a different main ingredient (e.g. chicken vs mutton),
   has significant nutritional differences, or cannot be matched with 95%% confidence,
   set "needs_escalation": true and "matched_food_name": null.

Return ONLY a JSON array, no other text or markdown, with one object per food in order of mention:
{
  "original_text": "the original food mention",
  "quantity": "the quantity mentioned",
  "unit": "the unit mentioned",
  "matched_food_name": "name copied exactly from the list" or null,
  "needs_escalation": true or false,
  "confidence": number between 0 and 1
}

Be very strict about matches. If someone says "chicken biryani" and the list has "mutton biryani",
or says "rice" and the list has "brown rice", set needs_escalation to true.

List of Food Names: %s

User's food intake text: %q
`

const estimatePromptTemplate = `You are a nutrition research expert. For each of the following foods, estimate the
TOTAL nutritional values for the user's quantity and unit.

Foods: %s

Rules:
- If the quantity or unit is unclear or missing, use a reasonable default portion (1 plate, 1 bowl, 1 serving).
- Use standard serving sizes: 1 plate = 250g, 1 cup = 240ml, 1 katori = 150g.
- Multiply per-serving values by the quantity, e.g. "3 plates" is three times one plate.
- Never leave quantity or unit empty.

Return ONLY a JSON array, one object per food, echoing each food's id:
{
  "id": "the id given above",
  "food_name": "food name",
  "quantity": number,
  "unit": "unit",
  "total_calories": number,
  "total_protein": number,
  "total_carbs": number,
  "total_fat": number,
  "source": "URL of the source, if available",
  "note": "one sentence describing the source and method used"
}
`

const selectionPromptTemplate = `You are a nutrition research expert. Each food below comes with candidate products from a
food database, with nutrition per 100 g or 100 ml and a completeness score (0-4, higher is better).

Foods: %s

For each food:
1. Pick the candidate that best matches what the user ate, preferring complete data. Use its index,
   or -1 if none fits.
2. Using the chosen candidate, compute the nutrition for ONE user unit (per_unit_nutrition)
   and for the user's full quantity (total_nutrition). total must equal per-unit times quantity.
3. Use standard serving sizes: 1 plate = 250g, 1 cup = 240ml, 1 katori = 150g, 1 bowl = 200g.
4. If no candidate fits, estimate from general knowledge and say so in the note.

Return ONLY a JSON array, one object per food, echoing each food's id:
{
  "id": "the id given above",
  "candidate_index": number,
  "food_name": "food name",
  "quantity": number,
  "unit": "unit",
  "per_unit_nutrition": {"calories": number, "protein": number, "carbs": number, "fat": number},
  "total_nutrition": {"calories": number, "protein": number, "carbs": number, "fat": number},
  "source": "URL of the chosen candidate, if any",
  "note": "one sentence describing the source and method used"
}
`

// promptMention is the view of a mention handed to enrichment prompts
type promptMention struct {
	ID           string            `json:"id"`
	OriginalText string            `json:"original_text"`
	Quantity     string            `json:"quantity"`
	Unit         string            `json:"unit"`
	Candidates   []promptCandidate `json:"candidates,omitempty"`
}

type promptCandidate struct {
	Index             int           `json:"index"`
	ProductName       string        `json:"product_name"`
	NutritionPer100   domain.Macros `json:"nutrition_per_100"`
	SourceURL         string        `json:"source_url,omitempty"`
	CompletenessScore int           `json:"completeness_score"`
}

func buildMatchPrompt(foodNames []string, text string) string {
	if foodNames == nil {
		foodNames = []string{}
	}
	names, _ := json.Marshal(foodNames)
	return fmt.Sprintf(matchPromptTemplate, names, text)
}

func buildEstimatePrompt(mentions []promptMention) string {
	payload, _ := json.Marshal(mentions)
	return fmt.Sprintf(estimatePromptTemplate, payload)
}

func buildSelectionPrompt(mentions []promptMention) string {
	payload, _ := json.Marshal(mentions)
	return fmt.Sprintf(selectionPromptTemplate, payload)
}
