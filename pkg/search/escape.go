package search

import (
	"strings"
	"unicode/utf8"
)

// Token is a search token ready to be embedded in a LIKE pattern: the store's
// metacharacters are escaped and the user wildcard `*` is mapped to `%`.
type Token string

// Len returns the token length used for weighting, in runes.
func (t Token) Len() int {
	return utf8.RuneCountInString(string(t))
}

// TokenSet is the ordered list of tokens scored for one search. When more
// than one token was given, the last entry is the synthetic phrase token.
type TokenSet []Token

// Key returns a stable string form of the set, used for cache keys.
func (ts TokenSet) Key() string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, "\x00")
}

// escaper runs in a single pass so each replacement sees only original input.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
	`*`, `%`,
)

// EscapeToken escapes one raw token. Native metacharacters are escaped
// before `*` becomes the store wildcard, so a user-requested wildcard is
// never itself escaped.
func EscapeToken(raw string) Token {
	return Token(escaper.Replace(raw))
}

// Escape escapes every token and appends the synthetic phrase token (all
// escaped tokens joined by one space) when more than one token is present.
func Escape(tokens []string) TokenSet {
	if len(tokens) == 0 {
		return nil
	}

	set := make(TokenSet, 0, len(tokens)+1)
	for _, raw := range tokens {
		set = append(set, EscapeToken(raw))
	}

	if len(set) > 1 {
		parts := make([]string, len(set))
		for i, t := range set {
			parts[i] = string(t)
		}
		set = append(set, Token(strings.Join(parts, " ")))
	}

	return set
}

// Parse tokenizes and escapes raw search text.
func Parse(text string) (TokenSet, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return Escape(tokens), nil
}
