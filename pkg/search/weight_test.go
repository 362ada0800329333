package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternClass(t *testing.T) {
	tok := Token("glide")

	tests := []struct {
		class   PatternClass
		name    string
		pattern string
		weight  int
	}{
		{ClassExact, "exact", "glide", 25},
		{ClassPrefix, "prefix", "glide%", 15},
		{ClassWordStart, "word_start", "% glide%", 10},
		{ClassSubstring, "substring", "%glide%", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.class.String())
			assert.Equal(t, tt.pattern, tt.class.Pattern(tok))
			assert.Equal(t, tt.weight, tt.class.Weight(tok))
		})
	}

	assert.Equal(t, "unknown", PatternClass(42).String())
	assert.Zero(t, PatternClass(42).Multiplier())
}

func TestContributions(t *testing.T) {
	got := Contributions(TokenSet{"ab", "cde"})
	require.Len(t, got, 8)

	assert.Equal(t, Contribution{Token: "ab", Class: ClassExact, Pattern: "ab", Weight: 10}, got[0])
	assert.Equal(t, Contribution{Token: "cde", Class: ClassSubstring, Pattern: "%cde%", Weight: 3}, got[7])

	assert.Empty(t, Contributions(nil))
}

func TestContribution_JSON(t *testing.T) {
	data, err := json.Marshal(Contribution{Token: "ab", Class: ClassWordStart, Pattern: "% ab%", Weight: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"ab","class":"word_start","pattern":"% ab%","weight":4}`, string(data))
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		value   string
		pattern string
		want    bool
	}{
		{"Aachen", "aachen", true},
		{"Aachen", "aach%", true},
		{"LV Aachen", "% aach%", true},
		{"LV Aachen", "%che%", true},
		{"LV Aachen", "aach%", false},
		{"abc", "a_c", true},
		{"abbc", "a_c", false},
		{"a_c", `a\_c`, true},
		{"abc", `a\_c`, false},
		{"100%", `100\%`, true},
		{"1000", `100\%`, false},
		{`c:\x`, `c:\\x`, true},
		{"", "%", true},
		{"", "a", false},
		{"aXbXc", "a%c", true},
		{"abcabd", "%abd", true},
		{"ZÜRICH", "zürich", true},
		{"mississippi", "%iss%ipp%", true},
		{"mississippi", "%iss%ppx%", false},
	}

	for _, tt := range tests {
		t.Run(tt.value+"~"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, likeMatch(tt.value, tt.pattern))
		})
	}
}

func TestScore_ExactMatchLowerBound(t *testing.T) {
	for _, raw := range []string{"a", "Aachen", "Zürich", "100%", "a_b"} {
		tok := EscapeToken(raw)
		assert.GreaterOrEqual(t, Score(raw, TokenSet{tok}), 5*tok.Len(), raw)
	}
}

func TestScore_EqualsSumOfFiredContributions(t *testing.T) {
	tokens := Escape([]string{"lv", "aach*"})

	for _, value := range []string{"LV Aachen", "Aachen", "Flugplatz Merzbrück", "lv", ""} {
		fired := Explain(value, tokens)
		sum := 0
		for _, c := range fired {
			sum += c.Weight
		}
		score := Score(value, tokens)
		assert.Equal(t, sum, score, value)
		assert.GreaterOrEqual(t, score, 0)
	}
}

func TestScore_ClassesAccumulate(t *testing.T) {
	tokens := TokenSet{"ab"}

	assert.Equal(t, 0, Score("xyz", tokens))
	assert.Equal(t, 2, Score("xaby", tokens))  // substring
	assert.Equal(t, 6, Score("x aby", tokens)) // word start + substring
	assert.Equal(t, 8, Score("abyz", tokens))  // prefix + substring
	assert.Equal(t, 18, Score("ab", tokens))   // exact + prefix + substring
}

func TestScore_DuplicateTokensDouble(t *testing.T) {
	value := "LV Aachen"

	single := Score(value, Escape([]string{"aachen"}))
	double := Escape([]string{"aachen", "aachen"})
	phrase := Score(value, TokenSet{double[len(double)-1]})

	require.NotZero(t, single)
	assert.Equal(t, 2*single, Score(value, double)-phrase)
}

func TestScore_SyntheticPhraseToken(t *testing.T) {
	tokens := Escape([]string{"lv", "aachen"})

	withPhrase := Score("LV Aachen", tokens)
	withoutPhrase := Score("LV Aachen", tokens[:2])

	// "lv aachen" matches the whole value: exact, prefix and substring
	assert.Equal(t, withoutPhrase+9*len("lv aachen"), withPhrase)
}

func TestScore_EscapeRoundTrip(t *testing.T) {
	literal := Escape([]string{"100%"})
	assert.Positive(t, Score("100%", literal))
	assert.Zero(t, Score("1000", literal))

	single := Escape([]string{"a_b"})
	assert.Positive(t, Score("a_b", single))
	assert.Zero(t, Score("axb", single))

	wildcard := Escape([]string{"sch*en"})
	assert.Equal(t, 9*wildcard[0].Len(), Score("Schwaben", wildcard))
}

func TestDialect_ScoreFoldsLikeTheStore(t *testing.T) {
	tokens := TokenSet{"ärzte"}

	assert.Equal(t, 20, Score("Ärzte Club", tokens))
	assert.Equal(t, 20, Postgres.Score("Ärzte Club", tokens))
	assert.Zero(t, SQLite.Score("Ärzte Club", tokens))
	assert.Empty(t, SQLite.Explain("Ärzte Club", tokens))

	// ASCII letters still fold on SQLite
	assert.Equal(t, SQLite.Score("Arzte Club", TokenSet{"arzte"}), SQLite.Score("ARZTE CLUB", TokenSet{"arzte"}))
	assert.Equal(t, 20, SQLite.Score("ARZTE CLUB", TokenSet{"arzte"}))
}
