package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// DefaultStageTimeout bounds each pipeline stage
const DefaultStageTimeout = 90 * time.Second

// PipelineConfig holds configuration for the analysis pipeline
type PipelineConfig struct {
	StageTimeout         time.Duration
	ConsistencyTolerance float64
}

// Pipeline runs one analysis: match, enrich escalated mentions, reconcile
// and aggregate. It holds no per-invocation state and is safe for
// concurrent use.
type Pipeline struct {
	refdb        domain.ReferenceDatabase
	matcher      *Matcher
	enricher     Enricher
	reconciler   *Reconciler
	stageTimeout time.Duration
	observer     Observer
	logger       *zap.Logger
}

// NewPipeline creates a new pipeline with dependencies
func NewPipeline(
	refdb domain.ReferenceDatabase,
	generator domain.TextGenerator,
	enricher Enricher,
	config PipelineConfig,
	observer Observer,
	logger *zap.Logger,
) *Pipeline {
	if observer == nil {
		observer = NopObserver()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stageTimeout := config.StageTimeout
	if stageTimeout <= 0 {
		stageTimeout = DefaultStageTimeout
	}

	return &Pipeline{
		refdb:        refdb,
		matcher:      NewMatcher(generator, refdb, logger),
		enricher:     enricher,
		reconciler:   NewReconciler(config.ConsistencyTolerance, observer, logger),
		stageTimeout: stageTimeout,
		observer:     observer,
		logger:       logger,
	}
}

// Analyze resolves the foods in text and computes progress against goals.
// Any stage failure fails the whole invocation with a *domain.PipelineError;
// no partial results are returned.
func (p *Pipeline) Analyze(ctx context.Context, text string, goals *domain.UserGoals) (result *domain.AnalyzeResult, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}

	start := time.Now()
	defer func() {
		p.observer.ObserveRun(time.Since(start), err)
	}()

	var mentions []domain.FoodMention
	err = p.runStage(ctx, domain.StageMatch, func(ctx context.Context) error {
		var err error
		mentions, err = p.matcher.Match(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	matched, escalated := p.split(mentions)

	var enriched []domain.EnrichedFood
	if len(escalated) > 0 {
		err = p.runStage(ctx, domain.StageEnrich, func(ctx context.Context) error {
			var err error
			enriched, err = p.enricher.Enrich(ctx, escalated)
			if err != nil {
				return err
			}
			enriched = p.alignEnriched(escalated, enriched)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var items []domain.ResolvedFoodItem
	err = p.runStage(ctx, domain.StageReconcile, func(context.Context) error {
		items = p.reconciler.Reconcile(matched, enriched)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var progress domain.GoalProgress
	err = p.runStage(ctx, domain.StageAggregate, func(context.Context) error {
		progress = Aggregate(items, goals)
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("analysis complete",
		zap.Int("mentions", len(mentions)),
		zap.Int("matched", len(matched)),
		zap.Int("escalated", len(escalated)),
		zap.String("strategy", p.enricher.Name()),
		zap.Duration("elapsed", time.Since(start)),
	)

	if matched == nil {
		matched = []domain.MatchedFood{}
	}
	return &domain.AnalyzeResult{
		Nutrition:    items,
		Progress:     progress,
		MatchedFoods: matched,
	}, nil
}

// alignEnriched returns exactly one record per escalated mention, in mention
// order. Records are matched by mention id, then by position when the id is
// blank or unknown. Mentions left without a record get a placeholder and
// surplus records are dropped.
func (p *Pipeline) alignEnriched(escalated []domain.FoodMention, enriched []domain.EnrichedFood) []domain.EnrichedFood {
	ids := make([]string, len(enriched))
	for i, e := range enriched {
		ids[i] = e.MentionID
	}
	assigned := alignOutputs(escalated, ids)

	out := make([]domain.EnrichedFood, len(escalated))
	missing := 0
	for i, m := range escalated {
		j := assigned[i]
		if j < 0 {
			out[i] = placeholder(m)
			missing++
			continue
		}
		out[i] = enriched[j]
		out[i].MentionID = m.ID
	}

	if missing > 0 || len(enriched) != len(escalated) {
		p.logger.Warn("enricher returned mismatched records",
			zap.String("strategy", p.enricher.Name()),
			zap.Int("escalated", len(escalated)),
			zap.Int("records", len(enriched)),
			zap.Int("placeholders", missing),
		)
	}
	return out
}

// split separates mentions served from the reference table from those that
// need enrichment, preserving mention order within each group.
func (p *Pipeline) split(mentions []domain.FoodMention) ([]domain.MatchedFood, []domain.FoodMention) {
	var matched []domain.MatchedFood
	var escalated []domain.FoodMention

	for _, m := range mentions {
		if m.IsMatched() {
			if ref, ok := p.refdb.Lookup(*m.MatchedFoodName); ok {
				matched = append(matched, domain.MatchedFood{FoodMention: m, MatchedFood: ref})
				continue
			}
			m.Escalate()
		}
		escalated = append(escalated, m)
	}

	return matched, escalated
}

// runStage runs fn under the stage timeout and wraps its error with the stage name.
func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &domain.PipelineError{Stage: stage, Err: upstreamError(err)}
	}

	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	elapsed := time.Since(start)
	p.observer.ObserveStage(stage, elapsed, err)

	if err != nil {
		p.logger.Warn("pipeline stage failed",
			zap.String("stage", stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		var perr *domain.PipelineError
		if errors.As(err, &perr) {
			return err
		}
		return &domain.PipelineError{Stage: stage, Err: err}
	}

	p.logger.Debug("pipeline stage complete", zap.String("stage", stage), zap.Duration("elapsed", elapsed))
	return nil
}
