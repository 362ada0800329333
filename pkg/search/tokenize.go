package search

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Tokenize when the input holds no tokens.
// It is not a failure: searching for nothing returns nothing.
var ErrEmptyQuery = errors.New("empty search query")

// Tokenize splits raw search text on whitespace. Case is preserved; matching
// is case-insensitive at the predicate level.
func Tokenize(text string) ([]string, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}
	return tokens, nil
}
