// Package cache keeps rendered search responses for a bounded time.
//
// Keys are derived from everything that changes a response: the searched
// kinds, the echoed query text, the escaped token set, the normalized limit
// and the explain flag.
// The kind tags are sorted before hashing so registration order never
// changes a key; the token order is kept because it decides the synthetic
// phrase token.
//
// Key format version: v2
// Format: skysearch:v2:{sha256 hex}
//
// Changing the hashed fields or their order invalidates every cached entry;
// bump the version when doing so.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/openglide/skysearch/pkg/search"
)

const keyPrefix = "skysearch:v2:"

// Key identifies one cached search response.
type Key struct {
	Kinds   []string
	// Query is the trimmed text the response echoes back
	Query   string
	Tokens  search.TokenSet
	Limit   int
	Explain bool
}

// NewKey builds a key for a search over kinds.
func NewKey(kinds []string, query string, tokens search.TokenSet, limit int, explain bool) Key {
	return Key{Kinds: kinds, Query: query, Tokens: tokens, Limit: limit, Explain: explain}
}

// Valid reports whether the key can address an entry.
func (k Key) Valid() bool {
	return len(k.Kinds) > 0 && len(k.Tokens) > 0 && k.Limit > 0
}

// String returns the storage key. Identical searches always produce the
// same string regardless of kind order.
func (k Key) String() string {
	kinds := make([]string, len(k.Kinds))
	copy(kinds, k.Kinds)
	sort.Strings(kinds)

	hasher := sha256.New()
	for _, kind := range kinds {
		hasher.Write([]byte(kind))
		hasher.Write([]byte{0})
	}
	hasher.Write([]byte{1})
	hasher.Write([]byte(k.Query))
	hasher.Write([]byte{1})
	hasher.Write([]byte(k.Tokens.Key()))
	hasher.Write([]byte{1})
	hasher.Write([]byte(strconv.Itoa(k.Limit)))
	hasher.Write([]byte{1})
	hasher.Write([]byte(strconv.FormatBool(k.Explain)))

	return keyPrefix + hex.EncodeToString(hasher.Sum(nil))
}
