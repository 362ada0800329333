package search

import (
	"unicode"
	"unicode/utf8"
)

// PatternClass is one of the four ways a token can match a column value.
type PatternClass int

const (
	// ClassExact matches the whole value: `t`
	ClassExact PatternClass = iota
	// ClassPrefix matches the start of the value: `t%`
	ClassPrefix
	// ClassWordStart matches the start of any later word: `% t%`
	ClassWordStart
	// ClassSubstring matches anywhere: `%t%`
	ClassSubstring
)

// PatternClasses lists every class in scoring order.
var PatternClasses = []PatternClass{ClassExact, ClassPrefix, ClassWordStart, ClassSubstring}

func (c PatternClass) String() string {
	switch c {
	case ClassExact:
		return "exact"
	case ClassPrefix:
		return "prefix"
	case ClassWordStart:
		return "word_start"
	case ClassSubstring:
		return "substring"
	default:
		return "unknown"
	}
}

// MarshalText encodes the class by name.
func (c PatternClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Multiplier returns the per-rune weight of the class.
func (c PatternClass) Multiplier() int {
	switch c {
	case ClassExact:
		return 5
	case ClassPrefix:
		return 3
	case ClassWordStart:
		return 2
	case ClassSubstring:
		return 1
	default:
		return 0
	}
}

// Pattern renders the LIKE pattern for a token under this class.
func (c PatternClass) Pattern(t Token) string {
	switch c {
	case ClassExact:
		return string(t)
	case ClassPrefix:
		return string(t) + "%"
	case ClassWordStart:
		return "% " + string(t) + "%"
	default:
		return "%" + string(t) + "%"
	}
}

// Weight returns the weight the class contributes for token t.
func (c PatternClass) Weight(t Token) int {
	return c.Multiplier() * t.Len()
}

// Contribution is one (token, class) term of a weight sum.
type Contribution struct {
	Token   Token        `json:"token"`
	Class   PatternClass `json:"class"`
	Pattern string       `json:"pattern"`
	Weight  int          `json:"weight"`
}

// Contributions lists every term of the weight sum for tokens, four per
// token in token order. Duplicate tokens are kept.
func Contributions(tokens TokenSet) []Contribution {
	out := make([]Contribution, 0, len(tokens)*len(PatternClasses))
	for _, t := range tokens {
		for _, c := range PatternClasses {
			out = append(out, Contribution{
				Token:   t,
				Class:   c,
				Pattern: c.Pattern(t),
				Weight:  c.Weight(t),
			})
		}
	}
	return out
}

// Score computes the weight of value for tokens in Go, folding case the
// way ILIKE does. Use Dialect.Score to match a particular store.
func Score(value string, tokens TokenSet) int {
	return score(value, tokens, foldUnicode)
}

// Explain returns the contributions that fire for value under ILIKE case
// folding. Their weights sum to Score(value, tokens).
func Explain(value string, tokens TokenSet) []Contribution {
	return explain(value, tokens, foldUnicode)
}

// Score computes the weight the dialect's weight expression gives value.
func (d Dialect) Score(value string, tokens TokenSet) int {
	return score(value, tokens, d.fold())
}

// Explain returns the contributions that fire for value in the dialect.
// Their weights sum to the weight the store returned for value.
func (d Dialect) Explain(value string, tokens TokenSet) []Contribution {
	return explain(value, tokens, d.fold())
}

func (d Dialect) fold() func(a, b rune) bool {
	if d.ASCIIFold {
		return foldASCII
	}
	return foldUnicode
}

func score(value string, tokens TokenSet, eq func(a, b rune) bool) int {
	total := 0
	for _, c := range Contributions(tokens) {
		if matchLike(value, c.Pattern, eq) {
			total += c.Weight
		}
	}
	return total
}

func explain(value string, tokens TokenSet, eq func(a, b rune) bool) []Contribution {
	var fired []Contribution
	for _, c := range Contributions(tokens) {
		if matchLike(value, c.Pattern, eq) {
			fired = append(fired, c)
		}
	}
	return fired
}

type likeItem struct {
	anySeq bool
	anyOne bool
	r      rune
}

func compileLike(pattern string) []likeItem {
	runes := []rune(pattern)
	items := make([]likeItem, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '%':
			items = append(items, likeItem{anySeq: true})
		case '_':
			items = append(items, likeItem{anyOne: true})
		case '\\':
			if i+1 < len(runes) {
				i++
			}
			items = append(items, likeItem{r: runes[i]})
		default:
			items = append(items, likeItem{r: r})
		}
	}
	return items
}

// likeMatch reports whether value matches a LIKE pattern with `\` as the
// escape character, ignoring case.
func likeMatch(value, pattern string) bool {
	return matchLike(value, pattern, foldUnicode)
}

func matchLike(value, pattern string, eq func(a, b rune) bool) bool {
	v := []rune(value)
	p := compileLike(pattern)

	i, j := 0, 0
	starJ, starI := -1, 0
	for i < len(v) {
		switch {
		case j < len(p) && !p[j].anySeq && (p[j].anyOne || eq(p[j].r, v[i])):
			i++
			j++
		case j < len(p) && p[j].anySeq:
			starJ, starI = j, i
			j++
		case starJ >= 0:
			starI++
			i, j = starI, starJ+1
		default:
			return false
		}
	}
	for j < len(p) && p[j].anySeq {
		j++
	}
	return j == len(p)
}

func foldUnicode(a, b rune) bool {
	return a == b || unicode.ToLower(a) == unicode.ToLower(b)
}

// foldASCII matches SQLite's built-in LIKE, which leaves non-ASCII
// characters case-sensitive.
func foldASCII(a, b rune) bool {
	if a == b {
		return true
	}
	if a >= utf8.RuneSelf || b >= utf8.RuneSelf {
		return false
	}
	return toLowerASCII(a) == toLowerASCII(b)
}

func toLowerASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}
