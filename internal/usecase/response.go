package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

// stripCodeFence removes a surrounding markdown code block such as ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[{") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseJSONArray decodes a generated response that should hold a JSON array
// into out. Prose around the array is tolerated; anything else is
// domain.ErrResponseFormat.
func parseJSONArray(raw string, out interface{}) error {
	text := stripCodeFence(raw)
	if !strings.HasPrefix(text, "[") {
		start := strings.IndexByte(text, '[')
		end := strings.LastIndexByte(text, ']')
		if start < 0 || end <= start {
			return fmt.Errorf("%w: no JSON array in response", domain.ErrResponseFormat)
		}
		text = text[start : end+1]
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrResponseFormat, err)
	}
	return nil
}

// rawMacros is a loosely typed macro block as produced by a model
type rawMacros struct {
	Calories interface{} `json:"calories"`
	Protein  interface{} `json:"protein"`
	Carbs    interface{} `json:"carbs"`
	Fat      interface{} `json:"fat"`
}

// Macros coerces every field and clamps it non-negative.
func (r *rawMacros) Macros() domain.Macros {
	return domain.Macros{
		Calories: domain.Coerce(r.Calories),
		Protein:  domain.Coerce(r.Protein),
		Carbs:    domain.Coerce(r.Carbs),
		Fat:      domain.Coerce(r.Fat),
	}.Sanitized()
}

// alignOutputs maps every mention to the index of its output record, or -1.
// Records are claimed first by id, then by position for records whose id is
// blank or unknown.
func alignOutputs(mentions []domain.FoodMention, outputIDs []string) []int {
	assigned := make([]int, len(mentions))
	used := make([]bool, len(outputIDs))

	known := make(map[string]bool, len(mentions))
	for _, m := range mentions {
		known[m.ID] = true
	}

	byID := make(map[string]int, len(outputIDs))
	for j, id := range outputIDs {
		if id == "" {
			continue
		}
		if _, dup := byID[id]; !dup {
			byID[id] = j
		}
	}

	for i, m := range mentions {
		assigned[i] = -1
		if j, ok := byID[m.ID]; ok && !used[j] {
			assigned[i] = j
			used[j] = true
		}
	}

	for i := range mentions {
		if assigned[i] != -1 || i >= len(outputIDs) || used[i] {
			continue
		}
		if id := outputIDs[i]; id == "" || !known[id] {
			assigned[i] = i
			used[i] = true
		}
	}

	return assigned
}
