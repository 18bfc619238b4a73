package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlog/backend/internal/domain"
)

func escalatedMentions(texts ...string) []domain.FoodMention {
	mentions := make([]domain.FoodMention, len(texts))
	for i, text := range texts {
		mentions[i] = domain.FoodMention{
			ID:              "m" + string(rune('1'+i)),
			OriginalText:    text,
			NeedsEscalation: true,
		}
	}
	return mentions
}

func TestEstimationEnricher_Enrich(t *testing.T) {
	ctx := context.Background()

	t.Run("maps totals and coerces loose values", func(t *testing.T) {
		gen := newScriptedGenerator("```json\n" + `[{"id": "m1", "food_name": "chicken biryani", "quantity": "2",
			"unit": "plates", "total_calories": "1040 kcal", "total_protein": 50, "total_carbs": "130g",
			"total_fat": null, "source": "https://example.com/biryani", "note": "Web data."}]` + "\n```")
		e := NewEstimationEnricher(gen, nil)

		out, err := e.Enrich(ctx, escalatedMentions("2 plates chicken biryani"))

		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "m1", out[0].MentionID)
		assert.Equal(t, "chicken biryani", out[0].FoodName)
		assert.Equal(t, 2.0, out[0].Quantity)
		assert.Equal(t, "plates", out[0].Unit)
		assert.Nil(t, out[0].PerUnit)
		assert.Equal(t, domain.Macros{Calories: 1040, Protein: 50, Carbs: 130}, out[0].Total)
		assert.Equal(t, "https://example.com/biryani", out[0].Source)
		assert.Equal(t, "Web data.", out[0].Note)
		assert.Contains(t, gen.prompts[0], `"original_text":"2 plates chicken biryani"`)
	})

	t.Run("aligns records by id", func(t *testing.T) {
		gen := newScriptedGenerator(`[
			{"id": "m2", "food_name": "tea", "total_calories": 30},
			{"id": "m1", "food_name": "samosa", "total_calories": 260}
		]`)
		e := NewEstimationEnricher(gen, nil)

		out, err := e.Enrich(ctx, escalatedMentions("samosa", "tea"))

		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "samosa", out[0].FoodName)
		assert.Equal(t, 260.0, out[0].Total.Calories)
		assert.Equal(t, "tea", out[1].FoodName)
	})

	t.Run("missing record becomes zero placeholder", func(t *testing.T) {
		gen := newScriptedGenerator(`[{"id": "m1", "food_name": "samosa", "total_calories": 260}]`)
		e := NewEstimationEnricher(gen, nil)

		out, err := e.Enrich(ctx, escalatedMentions("samosa", "mystery dish"))

		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "mystery dish", out[1].FoodName)
		assert.Equal(t, domain.Macros{}, out[1].Total)
		require.NotNil(t, out[1].PerUnit)
		assert.Equal(t, noDataNote, out[1].Note)
		assert.Equal(t, domain.DefaultUnit, out[1].Unit)
	})

	t.Run("defaults quantity unit and note from mention", func(t *testing.T) {
		gen := newScriptedGenerator(`[{"id": "m1", "total_calories": 100}]`)
		e := NewEstimationEnricher(gen, nil)
		mentions := escalatedMentions("3 idli")
		mentions[0].Quantity = "3"
		mentions[0].Unit = "piece"

		out, err := e.Enrich(ctx, mentions)

		require.NoError(t, err)
		assert.Equal(t, 3.0, out[0].Quantity)
		assert.Equal(t, "piece", out[0].Unit)
		assert.Equal(t, "3 idli", out[0].FoodName)
		assert.Equal(t, estimateNote, out[0].Note)
	})

	t.Run("no mentions makes no call", func(t *testing.T) {
		gen := newScriptedGenerator()
		e := NewEstimationEnricher(gen, nil)

		out, err := e.Enrich(ctx, nil)

		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Equal(t, 0, gen.calls())
	})

	t.Run("generator failure is upstream unavailable", func(t *testing.T) {
		gen := newScriptedGenerator()
		gen.errs = []error{errors.New("timeout")}
		e := NewEstimationEnricher(gen, nil)

		_, err := e.Enrich(ctx, escalatedMentions("samosa"))

		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})

	t.Run("unparseable response is response format error", func(t *testing.T) {
		e := NewEstimationEnricher(newScriptedGenerator("no idea"), nil)

		_, err := e.Enrich(ctx, escalatedMentions("samosa"))

		assert.ErrorIs(t, err, domain.ErrResponseFormat)
	})
}
