package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlog/backend/internal/domain"
)

func candidate(name string, completeness int) domain.EscalationCandidate {
	return domain.EscalationCandidate{ProductName: name, CompletenessScore: completeness}
}

func TestRankCandidates(t *testing.T) {
	t.Run("orders by completeness then relevance", func(t *testing.T) {
		input := []domain.EscalationCandidate{
			candidate("Brown rice, cooked", 2),
			candidate("Rice, white, long-grain", 4),
			candidate("Brown rice", 4),
		}

		ranked := RankCandidates("brown rice", input, 5)

		require.Len(t, ranked, 3)
		assert.Equal(t, "Brown rice", ranked[0].ProductName)
		assert.Equal(t, "Rice, white, long-grain", ranked[1].ProductName)
		assert.Equal(t, "Brown rice, cooked", ranked[2].ProductName)
	})

	t.Run("keeps input order on full ties", func(t *testing.T) {
		input := []domain.EscalationCandidate{
			candidate("Soda A", 3),
			candidate("Soda B", 3),
			candidate("Soda C", 3),
		}

		ranked := RankCandidates("lemonade", input, 5)

		require.Len(t, ranked, 3)
		assert.Equal(t, []string{"Soda A", "Soda B", "Soda C"}, productNames(ranked))
	})

	t.Run("truncates to limit", func(t *testing.T) {
		var input []domain.EscalationCandidate
		for i := 0; i < 8; i++ {
			input = append(input, candidate("Dal", i%4))
		}

		ranked := RankCandidates("dal", input, 5)

		require.Len(t, ranked, 5)
		for _, c := range ranked[:2] {
			assert.Equal(t, 3, c.CompletenessScore)
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		input := []domain.EscalationCandidate{candidate("B", 1), candidate("A", 4)}

		_ = RankCandidates("a", input, 5)

		assert.Equal(t, "B", input[0].ProductName)
	})

	t.Run("empty input returns nil", func(t *testing.T) {
		assert.Nil(t, RankCandidates("rice", nil, 5))
	})
}

func productNames(cs []domain.EscalationCandidate) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.ProductName
	}
	return names
}

func TestRelevanceScore(t *testing.T) {
	query := tokenize("mutton biryani")

	exact := relevanceScore(query, "Mutton Biryani")
	partial := relevanceScore(query, "Chicken Biryani")
	typo := relevanceScore(query, "Mutton Biriyani")
	unrelated := relevanceScore(query, "Orange juice")

	assert.InDelta(t, 100.0, exact, 0.001)
	assert.Greater(t, exact, typo)
	assert.Greater(t, typo, partial)
	assert.Greater(t, partial, unrelated)
	assert.Equal(t, 0.0, relevanceScore(nil, "Orange juice"))
}

func TestTokenize(t *testing.T) {
	t.Run("lowercases and removes punctuation", func(t *testing.T) {
		assert.Equal(t, []string{"brown", "rice", "cooked"}, tokenize("Brown Rice, (cooked)"))
	})

	t.Run("filters stop words, units and numbers", func(t *testing.T) {
		assert.Equal(t, []string{"dal"}, tokenize("2 katori of dal"))
	})

	t.Run("returns empty slice for empty string", func(t *testing.T) {
		assert.Empty(t, tokenize(""))
	})
}

func TestTokenWeight(t *testing.T) {
	assert.Equal(t, weightFood, tokenWeight("rice"))
	assert.Equal(t, weightDescriptive, tokenWeight("brown"))
	assert.Equal(t, weightDefault, tokenWeight("kerala"))
}

func TestIsNumeric(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"123", true},
		{"0", true},
		{"", false},
		{"12a", false},
		{"12.5", false}, // dot is not a digit
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, isNumeric(tc.input))
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	testCases := []struct {
		s1   string
		s2   string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "a", 1},
		{"dal", "dal", 0},
		{"roti", "rotu", 1},       // substitution
		{"dosa", "dosai", 1},      // insertion
		{"paneer", "paner", 1},    // deletion
		{"kitten", "sitting", 3},  // classic example
		{"biryani", "biriyani", 1}, // common spelling variant
	}

	for _, tc := range testCases {
		t.Run(tc.s1+"_"+tc.s2, func(t *testing.T) {
			assert.Equal(t, tc.want, levenshteinDistance(tc.s1, tc.s2))
		})
	}
}

func TestFuzzyTokenMatch(t *testing.T) {
	testCases := []struct {
		token1    string
		token2    string
		threshold int
		want      bool
	}{
		{"rice", "rice", 1, true},        // identical
		{"dal", "daal", 1, false},        // short token, fuzzy disabled
		{"paneer", "paner", 1, true},     // edit distance 1
		{"chicken", "chikin", 1, false},  // edit distance 2
		{"chicken", "chikin", 2, true},   // within threshold 2
		{"biryani", "biriyani", 1, true}, // spelling variant
	}

	for _, tc := range testCases {
		t.Run(tc.token1+"_"+tc.token2, func(t *testing.T) {
			assert.Equal(t, tc.want, fuzzyTokenMatch(tc.token1, tc.token2, tc.threshold))
		})
	}
}
