package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// QueryPreprocessor turns a food mention into a focused search query
type QueryPreprocessor struct {
	logger *zap.Logger
}

// Compiled regex patterns for query preprocessing
var (
	// Leading amounts like "2", "1.5", "1/2", "1 1/2", "two", "half a"
	leadingAmountPattern = regexp.MustCompile(`^\s*((\d+\s+)?\d+(\.\d+)?(\s*/\s*\d+)?|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|half|quarter|couple|few|dozen)\b(\s+(a|an|of)\b)?\s*`)

	// Leading measures like "cups of", "plate of", "katori", "tbsp", "g"
	leadingUnitPattern = regexp.MustCompile(`^\s*(cups?|plates?|katoris?|bowls?|glass(es)?|pieces?|slices?|servings?|tbsp|tablespoons?|tsp|teaspoons?|g|gms?|grams?|kg|ml|l|liters?|litres?|oz|ounces?|lbs?|pounds?)\b\.?(\s+of)?\s*`)

	// Inline sizes like "200g", "12 oz", "500 ml"
	sizeQuantityPattern = regexp.MustCompile(`\b\d+\.?\d*\s*(fl\s*)?oz\b|\b\d+\.?\d*\s*(fl\s*)?ounces?\b|\b\d+\.?\d*\s*lbs?\b|\b\d+\.?\d*\s*ml\b|\b\d+\.?\d*\s*liters?\b|\b\d+\.?\d*\s*kg\b|\b\d+\.?\d*\s*grams?\b|\b\d+\.?\d*\s*g\b`)

	orphanedPunctuationPattern = regexp.MustCompile(`\s+[,\-;:]+\s+`)
	trailingPunctuationPattern = regexp.MustCompile(`[,\-;:.!]+\s*$`)
	leadingPunctuationPattern  = regexp.MustCompile(`^\s*[,\-;:]+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// queryNoiseWords are removed from queries because they do not narrow a search
var queryNoiseWords = map[string]bool{
	// Size descriptors
	"large":  true,
	"medium": true,
	"small":  true,
	"big":    true,
	"mini":   true,
	"jumbo":  true,
	"huge":   true,
	"little": true,
	"full":   true,
	"extra":  true,

	// Filler words from diary text
	"some":      true,
	"about":     true,
	"around":    true,
	"roughly":   true,
	"approx":    true,
	"homemade":  true,
	"delicious": true,
	"tasty":     true,

	// Generic terms
	"food":    true,
	"item":    true,
	"product": true,
}

// maxQueryLength caps the query sent to search providers
const maxQueryLength = 100

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger *zap.Logger) *QueryPreprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryPreprocessor{logger: logger}
}

// PreprocessQuery strips amounts, measures and filler words from a mention
// so that only the food name is left, e.g. "2 cups of brown rice" becomes
// "brown rice".
func (p *QueryPreprocessor) PreprocessQuery(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	original := text
	cleaned := strings.ToLower(text)

	// Step 1: Drop the leading amount and measure
	cleaned = leadingAmountPattern.ReplaceAllString(cleaned, "")
	cleaned = leadingUnitPattern.ReplaceAllString(cleaned, "")

	// Step 2: Remove inline sizes
	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")

	// Step 3: Remove noise words
	cleaned = p.removeNoiseWords(cleaned)

	// Step 4: Clean up punctuation that's now orphaned
	cleaned = cleanOrphanedPunctuation(cleaned)

	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	// Nothing useful left, search for what the user wrote
	if cleaned == "" {
		cleaned = strings.ToLower(strings.TrimSpace(original))
	}

	if len(cleaned) > maxQueryLength {
		cleaned = cleaned[:maxQueryLength]
		// Try to cut at word boundary
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.logger.Debug("preprocessed search query",
		zap.String("input", original),
		zap.String("query", cleaned),
	)

	return cleaned
}

// removeNoiseWords removes filler and size terms from the query
func (p *QueryPreprocessor) removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		cleanWord := strings.Trim(word, ",.!?;:-'\"")
		if !queryNoiseWords[cleanWord] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// cleanOrphanedPunctuation removes punctuation that's now alone (e.g., lone commas)
func cleanOrphanedPunctuation(s string) string {
	result := orphanedPunctuationPattern.ReplaceAllString(s, " ")
	result = trailingPunctuationPattern.ReplaceAllString(result, "")
	result = leadingPunctuationPattern.ReplaceAllString(result, "")
	return result
}
