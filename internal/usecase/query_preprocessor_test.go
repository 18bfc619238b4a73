package usecase

import (
	"strings"
	"testing"
)

func TestPreprocessQuery(t *testing.T) {
	p := NewQueryPreprocessor(nil)

	testCases := []struct {
		name string
		text string
		want string
	}{
		{
			name: "removes count and unit",
			text: "2 cups of brown rice",
			want: "brown rice",
		},
		{
			name: "removes mixed number and plural unit",
			text: "1 1/2 plates mutton biryani",
			want: "mutton biryani",
		},
		{
			name: "removes number word with article",
			text: "half a katori dal",
			want: "dal",
		},
		{
			name: "removes inline gram size",
			text: "200g paneer tikka",
			want: "paneer tikka",
		},
		{
			name: "removes article and size descriptor",
			text: "a large banana",
			want: "banana",
		},
		{
			name: "removes filler words and trailing period",
			text: "some homemade chicken curry.",
			want: "chicken curry",
		},
		{
			name: "keeps words that only start like an article",
			text: "Apple pie",
			want: "apple pie",
		},
		{
			name: "falls back to original text when nothing remains",
			text: "2 cups",
			want: "2 cups",
		},
		{
			name: "empty input",
			text: "   ",
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.PreprocessQuery(tc.text)
			if got != tc.want {
				t.Errorf("PreprocessQuery(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestPreprocessQuery_LongInput(t *testing.T) {
	p := NewQueryPreprocessor(nil)

	longText := strings.Repeat("slow cooked spicy tandoori chicken ", 10)

	result := p.PreprocessQuery(longText)

	if len(result) > maxQueryLength {
		t.Errorf("result length = %d, want <= %d", len(result), maxQueryLength)
	}
	if strings.HasSuffix(result, " ") {
		t.Errorf("result %q should be cut at a word boundary", result)
	}
}

func TestRemoveNoiseWords(t *testing.T) {
	p := NewQueryPreprocessor(nil)

	testCases := []struct {
		input string
		want  string
	}{
		{"large banana", "banana"},
		{"some homemade dal", "dal"},
		{"about 3 small idli", "3 idli"},
		{"", ""},
		{"chicken breast", "chicken breast"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := p.removeNoiseWords(tc.input)
			if got != tc.want {
				t.Errorf("removeNoiseWords(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanOrphanedPunctuation(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"milk , cheese", "milk cheese"},
		{", milk", " milk"}, // leading comma removed but space remains
		{"milk,", "milk"},
		{"milk - cheese", "milk cheese"},
		{"milk", "milk"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := cleanOrphanedPunctuation(tc.input)
			if got != tc.want {
				t.Errorf("cleanOrphanedPunctuation(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
