package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Token weight categories for relevance scoring
const (
	weightFood        = 3.0 // Core food terms (rice, chicken, dal)
	weightDescriptive = 2.0 // Descriptive terms (brown, fried, low)
	weightDefault     = 1.0
	fuzzyWeightFactor = 0.8 // Fuzzy matches get 80% of normal weight
	fuzzyEditDistance = 1
)

// foodTerms contains high-importance food keywords
var foodTerms = map[string]bool{
	// Proteins
	"chicken": true, "beef": true, "pork": true, "fish": true, "salmon": true,
	"turkey": true, "lamb": true, "mutton": true, "shrimp": true, "prawn": true,
	"tuna": true, "bacon": true, "egg": true, "eggs": true, "paneer": true,
	"tofu": true, "dal": true, "lentils": true, "chana": true, "rajma": true,
	// Dairy
	"milk": true, "cheese": true, "yogurt": true, "curd": true, "butter": true,
	"ghee": true, "cream": true, "lassi": true,
	// Grains
	"bread": true, "rice": true, "pasta": true, "oats": true, "wheat": true,
	"roti": true, "chapati": true, "naan": true, "paratha": true, "biryani": true,
	"poha": true, "upma": true, "idli": true, "dosa": true, "noodles": true,
	// Produce
	"apple": true, "banana": true, "orange": true, "mango": true, "tomato": true,
	"potato": true, "onion": true, "carrot": true, "spinach": true, "avocado": true,
	"beans": true, "peas": true, "corn": true,
	// Beverages
	"juice": true, "coffee": true, "tea": true, "chai": true, "smoothie": true,
	// Prepared foods and snacks
	"pizza": true, "burger": true, "sandwich": true, "soup": true, "salad": true,
	"samosa": true, "curry": true, "chips": true, "cookies": true, "chocolate": true,
}

// descriptiveTerms contains medium-importance descriptive keywords
var descriptiveTerms = map[string]bool{
	"whole": true, "skim": true, "reduced": true, "fat": true, "low": true,
	"organic": true, "fresh": true, "frozen": true, "dried": true, "raw": true,
	"cooked": true, "grilled": true, "baked": true, "fried": true, "roasted": true,
	"steamed": true, "boiled": true, "plain": true, "sweet": true, "spicy": true,
	"white": true, "brown": true, "basmati": true, "masala": true, "tandoori": true,
	"unsweetened": true, "salted": true, "boneless": true, "lean": true, "light": true,
}

// stopWords are dropped before scoring
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"had": true, "ate": true, "some": true, "my": true, "i": true,
	"oz": true, "lb": true, "lbs": true, "ml": true, "kg": true,
	"gram": true, "grams": true, "cup": true, "cups": true, "tbsp": true,
	"tsp": true, "plate": true, "plates": true, "bowl": true, "bowls": true,
	"katori": true, "serving": true, "servings": true, "piece": true, "pieces": true,
	"pack": true, "count": true, "ct": true, "per": true, "each": true,
}

// RankCandidates orders search candidates by completeness score, highest
// first, then by relevance to the query, then by original position, and keeps
// at most limit entries. The input slice is not modified.
func RankCandidates(query string, candidates []domain.EscalationCandidate, limit int) []domain.EscalationCandidate {
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		candidate domain.EscalationCandidate
		relevance float64
		position  int
	}

	queryTokens := tokenize(query)
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{
			candidate: c,
			relevance: relevanceScore(queryTokens, c.ProductName),
			position:  i,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.candidate.CompletenessScore != b.candidate.CompletenessScore {
			return a.candidate.CompletenessScore > b.candidate.CompletenessScore
		}
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		return a.position < b.position
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]domain.EscalationCandidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.candidate
	}
	return out
}

// relevanceScore returns a 0-100 weighted token-overlap score between the
// query tokens and a product name.
func relevanceScore(queryTokens []string, productName string) float64 {
	productTokens := tokenize(productName)
	if len(queryTokens) == 0 || len(productTokens) == 0 {
		return 0
	}

	var total, matched float64
	for _, qt := range queryTokens {
		w := tokenWeight(qt)
		total += w
		for _, pt := range productTokens {
			if qt == pt {
				matched += w
				break
			}
			if fuzzyTokenMatch(qt, pt, fuzzyEditDistance) {
				matched += w * fuzzyWeightFactor
				break
			}
		}
	}
	coverage := matched / total

	// Shorter product names that cover the query are usually the generic food
	shared, _ := findIntersection(queryTokens, productTokens)
	jaccard := float64(shared) / float64(findUnion(queryTokens, productTokens))

	return (coverage*0.8 + jaccard*0.2) * 100
}

// tokenWeight returns the importance weight of a token
func tokenWeight(token string) float64 {
	switch {
	case foodTerms[token]:
		return weightFood
	case descriptiveTerms[token]:
		return weightDescriptive
	default:
		return weightDefault
	}
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and pure numeric tokens.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to longer tokens to avoid false positives
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
