package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// Enrichment strategy names
const (
	StrategyEstimate = "estimate"
	StrategySearch   = "search"
)

const (
	noDataNote       = "No nutrition data found for this food."
	estimateNote     = "AI estimate based on standard portion sizes."
	placeholderLabel = "Unknown food"
)

// Enricher produces nutrition for escalated mentions. Implementations return
// exactly one record per input mention, in input order.
type Enricher interface {
	Enrich(ctx context.Context, mentions []domain.FoodMention) ([]domain.EnrichedFood, error)
	Name() string
}

// rawEstimate is one element of the estimation response
type rawEstimate struct {
	ID            string      `json:"id"`
	FoodName      string      `json:"food_name"`
	Quantity      interface{} `json:"quantity"`
	Unit          interface{} `json:"unit"`
	TotalCalories interface{} `json:"total_calories"`
	TotalProtein  interface{} `json:"total_protein"`
	TotalCarbs    interface{} `json:"total_carbs"`
	TotalFat      interface{} `json:"total_fat"`
	Source        interface{} `json:"source"`
	Note          interface{} `json:"note"`
}

// EstimationEnricher asks the generator for total nutrition of all escalated
// mentions in a single call
type EstimationEnricher struct {
	generator domain.TextGenerator
	logger    *zap.Logger
}

// NewEstimationEnricher creates a new estimation enricher
func NewEstimationEnricher(generator domain.TextGenerator, logger *zap.Logger) *EstimationEnricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EstimationEnricher{generator: generator, logger: logger}
}

// Name returns the strategy name.
func (e *EstimationEnricher) Name() string {
	return StrategyEstimate
}

// Enrich returns one estimate per mention.
func (e *EstimationEnricher) Enrich(ctx context.Context, mentions []domain.FoodMention) ([]domain.EnrichedFood, error) {
	if len(mentions) == 0 {
		return nil, nil
	}

	response, err := e.generator.Generate(ctx, buildEstimatePrompt(toPromptMentions(mentions)))
	if err != nil {
		return nil, upstreamError(err)
	}

	var raw []rawEstimate
	if err := parseJSONArray(response, &raw); err != nil {
		e.logger.Warn("unparseable estimate response", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(raw))
	for i, r := range raw {
		ids[i] = r.ID
	}
	assigned := alignOutputs(mentions, ids)

	out := make([]domain.EnrichedFood, len(mentions))
	for i, m := range mentions {
		j := assigned[i]
		if j < 0 {
			e.logger.Warn("no estimate returned for mention",
				zap.String("mention_id", m.ID),
				zap.String("text", m.OriginalText),
			)
			out[i] = placeholder(m)
			continue
		}
		out[i] = fromEstimate(m, raw[j])
	}

	if len(raw) != len(mentions) {
		e.logger.Warn("estimate count mismatch",
			zap.Int("mentions", len(mentions)),
			zap.Int("estimates", len(raw)),
		)
	}

	return out, nil
}

func fromEstimate(m domain.FoodMention, r rawEstimate) domain.EnrichedFood {
	quantity := r.Quantity
	if stringify(quantity) == "" {
		quantity = m.Quantity
	}

	note := stringify(r.Note)
	if note == "" {
		note = estimateNote
	}

	return domain.EnrichedFood{
		MentionID: m.ID,
		FoodName:  foodNameOr(r.FoodName, m.OriginalText),
		Quantity:  ParseQuantity(quantity),
		Unit:      defaultUnit(stringify(r.Unit), m.Unit),
		Total: domain.Macros{
			Calories: domain.Coerce(r.TotalCalories),
			Protein:  domain.Coerce(r.TotalProtein),
			Carbs:    domain.Coerce(r.TotalCarbs),
			Fat:      domain.Coerce(r.TotalFat),
		}.Sanitized(),
		Note:   note,
		Source: stringify(r.Source),
	}
}

// placeholder is the zero-nutrition record for a mention nothing could be found for.
func placeholder(m domain.FoodMention) domain.EnrichedFood {
	return domain.EnrichedFood{
		MentionID: m.ID,
		FoodName:  foodNameOr("", m.OriginalText),
		Quantity:  ParseQuantity(m.Quantity),
		Unit:      defaultUnit(m.Unit),
		PerUnit:   &domain.Macros{},
		Note:      noDataNote,
	}
}

func foodNameOr(names ...string) string {
	for _, n := range names {
		if n = stringify(n); n != "" {
			return n
		}
	}
	return placeholderLabel
}

func toPromptMentions(mentions []domain.FoodMention) []promptMention {
	out := make([]promptMention, len(mentions))
	for i, m := range mentions {
		out[i] = promptMention{
			ID:           m.ID,
			OriginalText: m.OriginalText,
			Quantity:     m.Quantity,
			Unit:         m.Unit,
		}
	}
	return out
}
