package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foodlog/backend/internal/domain"
)

// Search enrichment defaults
const (
	DefaultMaxCandidates     = 5
	DefaultSearchTimeout     = 15 * time.Second
	DefaultSearchConcurrency = 4
)

const derivedNote = "Derived from per-100 values of the selected food database entry."

// SearchEnricherConfig holds configuration for the search strategy
type SearchEnricherConfig struct {
	MaxCandidates int
	SearchTimeout time.Duration
	Concurrency   int
}

// rawSelection is one element of the candidate selection response
type rawSelection struct {
	ID               string      `json:"id"`
	CandidateIndex   interface{} `json:"candidate_index"`
	FoodName         string      `json:"food_name"`
	Quantity         interface{} `json:"quantity"`
	Unit             interface{} `json:"unit"`
	PerUnitNutrition *rawMacros  `json:"per_unit_nutrition"`
	TotalNutrition   *rawMacros  `json:"total_nutrition"`
	Source           interface{} `json:"source"`
	Note             interface{} `json:"note"`
}

// SearchEnricher looks every escalated mention up in a food-facts search
// service concurrently, then lets the generator select one candidate per
// mention in a single call
type SearchEnricher struct {
	searcher     domain.FoodSearcher
	generator    domain.TextGenerator
	preprocessor *QueryPreprocessor
	config       SearchEnricherConfig
	observer     Observer
	logger       *zap.Logger
}

// NewSearchEnricher creates a new search enricher with dependencies
func NewSearchEnricher(
	searcher domain.FoodSearcher,
	generator domain.TextGenerator,
	config SearchEnricherConfig,
	observer Observer,
	logger *zap.Logger,
) *SearchEnricher {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultMaxCandidates
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = DefaultSearchTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultSearchConcurrency
	}
	if observer == nil {
		observer = NopObserver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SearchEnricher{
		searcher:     searcher,
		generator:    generator,
		preprocessor: NewQueryPreprocessor(logger),
		config:       config,
		observer:     observer,
		logger:       logger,
	}
}

// Name returns the strategy name.
func (e *SearchEnricher) Name() string {
	return StrategySearch
}

// Enrich returns one record per mention. A mention whose search failed or
// found nothing becomes a zero-nutrition placeholder rather than failing the
// stage.
func (e *SearchEnricher) Enrich(ctx context.Context, mentions []domain.FoodMention) ([]domain.EnrichedFood, error) {
	if len(mentions) == 0 {
		return nil, nil
	}

	candidates := e.searchAll(ctx, mentions)
	if err := ctx.Err(); err != nil {
		return nil, upstreamError(err)
	}

	found := 0
	for _, c := range candidates {
		if len(c) > 0 {
			found++
		}
	}

	out := make([]domain.EnrichedFood, len(mentions))
	if found == 0 {
		e.logger.Info("no search candidates for any mention", zap.Int("mentions", len(mentions)))
		for i, m := range mentions {
			out[i] = placeholder(m)
		}
		return out, nil
	}

	prompt := buildSelectionPrompt(toCandidatePrompt(mentions, candidates))
	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, upstreamError(err)
	}

	var raw []rawSelection
	if err := parseJSONArray(response, &raw); err != nil {
		e.logger.Warn("unparseable selection response", zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(raw))
	for i, r := range raw {
		ids[i] = r.ID
	}
	assigned := alignOutputs(mentions, ids)

	for i, m := range mentions {
		if len(candidates[i]) == 0 {
			out[i] = placeholder(m)
			continue
		}
		if j := assigned[i]; j >= 0 {
			out[i] = e.fromSelection(m, candidates[i], raw[j])
			continue
		}
		e.logger.Warn("no selection returned for mention",
			zap.String("mention_id", m.ID),
			zap.String("text", m.OriginalText),
		)
		out[i] = fromTopCandidate(m, candidates[i])
	}

	return out, nil
}

// searchAll runs one bounded search per mention. The result slice is
// index-aligned with mentions.
func (e *SearchEnricher) searchAll(ctx context.Context, mentions []domain.FoodMention) [][]domain.EscalationCandidate {
	results := make([][]domain.EscalationCandidate, len(mentions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)
	for i, m := range mentions {
		g.Go(func() error {
			results[i] = e.searchMention(gctx, m)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *SearchEnricher) searchMention(ctx context.Context, m domain.FoodMention) []domain.EscalationCandidate {
	query := e.preprocessor.PreprocessQuery(m.OriginalText)
	if query == "" {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	start := time.Now()
	found, err := e.searcher.Search(sctx, query, e.config.MaxCandidates*2)
	if err != nil {
		e.observer.SearchFailed()
		e.logger.Warn("food search failed",
			zap.String("mention_id", m.ID),
			zap.String("query", query),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil
	}

	ranked := RankCandidates(query, found, e.config.MaxCandidates)
	e.logger.Debug("food search complete",
		zap.String("mention_id", m.ID),
		zap.String("query", query),
		zap.Int("results", len(found)),
		zap.Int("kept", len(ranked)),
	)
	return ranked
}

func (e *SearchEnricher) fromSelection(m domain.FoodMention, candidates []domain.EscalationCandidate, r rawSelection) domain.EnrichedFood {
	quantity := r.Quantity
	if stringify(quantity) == "" {
		quantity = m.Quantity
	}

	food := domain.EnrichedFood{
		MentionID: m.ID,
		FoodName:  foodNameOr(r.FoodName, m.OriginalText),
		Quantity:  ParseQuantity(quantity),
		Unit:      defaultUnit(stringify(r.Unit), m.Unit),
		Note:      stringify(r.Note),
		Source:    stringify(r.Source),
	}

	var selected *domain.EscalationCandidate
	if idx, ok := candidateIndex(r.CandidateIndex, len(candidates)); ok {
		selected = &candidates[idx]
		per100 := selected.NutritionPer100
		food.Per100 = &per100
		food.Completeness = selected.CompletenessScore
		if food.Source == "" {
			food.Source = selected.SourceURL
		}
	}

	if r.PerUnitNutrition != nil {
		perUnit := r.PerUnitNutrition.Macros()
		food.PerUnit = &perUnit
	}
	if r.TotalNutrition != nil {
		food.Total = r.TotalNutrition.Macros()
	} else if food.PerUnit != nil {
		food.Total = food.PerUnit.Scale(food.Quantity)
	}

	reported := (r.TotalNutrition != nil && food.Total.NonZeroFields() > 0) ||
		(food.PerUnit != nil && food.PerUnit.NonZeroFields() > 0)
	derived := false
	if !reported && selected != nil {
		if perUnit, ok := perUnitFromCandidate(*selected, food.Unit); ok {
			food.PerUnit = &perUnit
			food.Total = perUnit.Scale(food.Quantity)
			derived = true
		}
	}

	if food.PerUnit == nil && r.TotalNutrition == nil {
		food.PerUnit = &domain.Macros{}
	}
	if food.Note == "" {
		switch {
		case derived:
			food.Note = derivedNote
		case reported && selected != nil:
			food.Note = "Based on food database entry: " + selected.ProductName + "."
		case reported:
			food.Note = estimateNote
		default:
			food.Note = noDataNote
		}
	}

	return food
}

// fromTopCandidate builds a record from the best-ranked candidate when the
// generator skipped a mention.
func fromTopCandidate(m domain.FoodMention, candidates []domain.EscalationCandidate) domain.EnrichedFood {
	if len(candidates) == 0 {
		return placeholder(m)
	}
	top := candidates[0]
	unit := defaultUnit(m.Unit)
	perUnit, ok := perUnitFromCandidate(top, unit)
	if !ok {
		return placeholder(m)
	}

	quantity := ParseQuantity(m.Quantity)
	per100 := top.NutritionPer100
	return domain.EnrichedFood{
		MentionID:    m.ID,
		FoodName:     foodNameOr(top.ProductName, m.OriginalText),
		Quantity:     quantity,
		Unit:         unit,
		PerUnit:      &perUnit,
		Total:        perUnit.Scale(quantity),
		Per100:       &per100,
		Completeness: top.CompletenessScore,
		Note:         derivedNote,
		Source:       top.SourceURL,
	}
}

// perUnitFromCandidate scales per-100 values to one unit of the given kind.
func perUnitFromCandidate(c domain.EscalationCandidate, unit string) (domain.Macros, bool) {
	grams, ok := GramsPerUnit(unit)
	if !ok {
		return domain.Macros{}, false
	}
	return c.NutritionPer100.Scale(grams / 100).Sanitized(), true
}

// candidateIndex validates a generated candidate index against n candidates.
func candidateIndex(v interface{}, n int) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	idx := int(f)
	if float64(idx) != f || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func toCandidatePrompt(mentions []domain.FoodMention, candidates [][]domain.EscalationCandidate) []promptMention {
	out := toPromptMentions(mentions)
	for i := range out {
		cs := candidates[i]
		out[i].Candidates = make([]promptCandidate, len(cs))
		for j, c := range cs {
			out[i].Candidates[j] = promptCandidate{
				Index:             j,
				ProductName:       c.ProductName,
				NutritionPer100:   c.NutritionPer100,
				SourceURL:         c.SourceURL,
				CompletenessScore: c.CompletenessScore,
			}
		}
	}
	return out
}
