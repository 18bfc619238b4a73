package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// rawMention is one element of the match response before normalization
type rawMention struct {
	OriginalText    string      `json:"original_text"`
	Quantity        interface{} `json:"quantity"`
	Unit            interface{} `json:"unit"`
	MatchedFoodName *string     `json:"matched_food_name"`
	NeedsEscalation *bool       `json:"needs_escalation"`
	NeedsWebSearch  *bool       `json:"needs_web_search"`
	Confidence      interface{} `json:"confidence"`
}

// Matcher splits free text into food mentions and matches them against the
// reference database with a single generation call
type Matcher struct {
	generator domain.TextGenerator
	refdb     domain.ReferenceDatabase
	logger    *zap.Logger
}

// NewMatcher creates a new matcher
func NewMatcher(generator domain.TextGenerator, refdb domain.ReferenceDatabase, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		generator: generator,
		refdb:     refdb,
		logger:    logger,
	}
}

// Match returns the mentions found in text in order of appearance. A mention
// keeps its match only when the generator was confident enough, did not ask
// for escalation, and named a food that exists in the reference database.
func (m *Matcher) Match(ctx context.Context, text string) ([]domain.FoodMention, error) {
	prompt := buildMatchPrompt(m.refdb.Names(), text)

	response, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, upstreamError(err)
	}

	var raw []rawMention
	if err := parseJSONArray(response, &raw); err != nil {
		m.logger.Warn("unparseable match response", zap.Error(err), zap.Int("response_len", len(response)))
		return nil, err
	}

	mentions := make([]domain.FoodMention, 0, len(raw))
	for _, r := range raw {
		mention, ok := m.normalize(r)
		if !ok {
			continue
		}
		mention.ID = fmt.Sprintf("m%d", len(mentions)+1)
		mentions = append(mentions, mention)
	}

	m.logger.Debug("matched mentions",
		zap.Int("mentions", len(mentions)),
		zap.Int("escalated", countEscalated(mentions)),
	)

	return mentions, nil
}

// normalize converts a raw mention, reporting false when it has nothing to resolve.
func (m *Matcher) normalize(r rawMention) (domain.FoodMention, bool) {
	mention := domain.FoodMention{
		OriginalText: strings.TrimSpace(r.OriginalText),
		Quantity:     stringify(r.Quantity),
		Unit:         stringify(r.Unit),
		Confidence:   normalizeConfidence(domain.Coerce(r.Confidence)),
	}

	var name string
	if r.MatchedFoodName != nil {
		name = *r.MatchedFoodName
	}
	if mention.OriginalText == "" {
		mention.OriginalText = strings.TrimSpace(name)
	}
	if mention.OriginalText == "" {
		return mention, false
	}

	escalate := (r.NeedsEscalation != nil && *r.NeedsEscalation) ||
		(r.NeedsWebSearch != nil && *r.NeedsWebSearch)

	if !escalate && name != "" && mention.Confidence >= domain.MatchConfidenceThreshold {
		if resolved, ok := m.resolveName(name); ok {
			mention.MatchedFoodName = &resolved
			return mention, true
		}
		m.logger.Debug("matched name not in reference database", zap.String("name", name))
	}

	mention.Escalate()
	return mention, true
}

// resolveName looks a generated name up exactly, then with surrounding whitespace removed.
func (m *Matcher) resolveName(name string) (string, bool) {
	if _, ok := m.refdb.Lookup(name); ok {
		return name, true
	}
	trimmed := strings.TrimSpace(name)
	if _, ok := m.refdb.Lookup(trimmed); ok {
		return trimmed, true
	}
	return "", false
}

// normalizeConfidence maps a confidence into [0, 1]. Values above 1 and up
// to 100 are read as percentages.
func normalizeConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return 0
	case c <= 1:
		return c
	case c <= 100:
		return c / 100
	default:
		return 1
	}
}

func countEscalated(mentions []domain.FoodMention) int {
	n := 0
	for _, m := range mentions {
		if m.NeedsEscalation {
			n++
		}
	}
	return n
}

// upstreamError wraps a generator or search failure as domain.ErrUpstreamUnavailable.
func upstreamError(err error) error {
	if errors.Is(err, domain.ErrUpstreamUnavailable) || errors.Is(err, domain.ErrResponseFormat) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
}
