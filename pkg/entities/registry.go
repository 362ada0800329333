package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidKind is returned when a kind declaration cannot be served.
// It is a startup error: registries are validated once, never per request.
var ErrInvalidKind = errors.New("invalid entity kind")

var (
	tagPattern        = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	tablePattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// reservedFields are result keys owned by the search core.
var reservedFields = map[string]bool{
	"type":    true,
	"kind":    true,
	"id":      true,
	"name":    true,
	"weight":  true,
	"explain": true,
}

// Registry is the ordered, validated set of searchable kinds.
type Registry struct {
	kinds []Kind
	byTag map[string]int
}

// NewRegistry validates the given kinds and returns a registry that keeps
// their registration order.
func NewRegistry(kinds ...Kind) (*Registry, error) {
	r := &Registry{
		kinds: make([]Kind, 0, len(kinds)),
		byTag: make(map[string]int, len(kinds)),
	}

	for _, k := range kinds {
		k = k.withDefaults()
		if err := validateKind(k); err != nil {
			return nil, err
		}
		if _, dup := r.byTag[k.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate tag %q", ErrInvalidKind, k.Tag)
		}
		r.byTag[k.Tag] = len(r.kinds)
		r.kinds = append(r.kinds, k)
	}

	return r, nil
}

// Default returns the built-in registry: pilots, clubs and airports.
func Default() *Registry {
	r, err := NewRegistry(DefaultKinds()...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultKinds returns the built-in kind declarations.
func DefaultKinds() []Kind {
	return []Kind{
		{
			Tag:   "user",
			Table: "users",
		},
		{
			Tag:   "club",
			Table: "clubs",
			Attributes: []Attribute{
				{Name: "website", Column: "website"},
			},
		},
		{
			Tag:   "airport",
			Table: "airports",
			Attributes: []Attribute{
				{Name: "icao", Column: "icao"},
				{Name: "frequency", Column: "frequency", Format: "%.3f"},
			},
		},
	}
}

// Kinds returns a copy of the registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.kinds))
	copy(kinds, r.kinds)
	return kinds
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string {
	tags := make([]string, len(r.kinds))
	for i, k := range r.kinds {
		tags[i] = k.Tag
	}
	return tags
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	return len(r.kinds)
}

// Lookup returns the kind registered under tag.
func (r *Registry) Lookup(tag string) (Kind, bool) {
	i, ok := r.byTag[tag]
	if !ok {
		return Kind{}, false
	}
	return r.kinds[i], true
}

// CheckStore probes every kind's table and columns against the store so a
// misconfigured registry fails at startup instead of on the first search.
func (r *Registry) CheckStore(ctx context.Context, db *sql.DB) error {
	for _, k := range r.kinds {
		cols := append([]string{k.IDColumn, k.NameColumn}, k.Columns()...)
		probe := fmt.Sprintf("SELECT %s FROM %s WHERE 1=0", strings.Join(cols, ", "), k.Table)

		rows, err := db.QueryContext(ctx, probe)
		if err != nil {
			return fmt.Errorf("%w: kind %q: probing %s: %v", ErrInvalidKind, k.Tag, k.Table, err)
		}
		rows.Close()
	}
	return nil
}

// CountRows returns the number of rows behind each kind, keyed by tag.
func (r *Registry) CountRows(ctx context.Context, db *sql.DB) (map[string]int64, error) {
	counts := make(map[string]int64, len(r.kinds))
	for _, k := range r.kinds {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+k.Table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s rows: %w", k.Tag, err)
		}
		counts[k.Tag] = n
	}
	return counts, nil
}

func validateKind(k Kind) error {
	if !tagPattern.MatchString(k.Tag) {
		return fmt.Errorf("%w: tag %q must match %s", ErrInvalidKind, k.Tag, tagPattern)
	}
	if !tablePattern.MatchString(k.Table) {
		return fmt.Errorf("%w: kind %q: table %q is not a valid identifier", ErrInvalidKind, k.Tag, k.Table)
	}
	if !identifierPattern.MatchString(k.IDColumn) {
		return fmt.Errorf("%w: kind %q: id column %q is not a valid identifier", ErrInvalidKind, k.Tag, k.IDColumn)
	}
	if !identifierPattern.MatchString(k.NameColumn) {
		return fmt.Errorf("%w: kind %q: name column %q is not a valid identifier", ErrInvalidKind, k.Tag, k.NameColumn)
	}

	seen := make(map[string]bool, len(k.Attributes))
	for _, attr := range k.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("%w: kind %q: attribute name is required", ErrInvalidKind, k.Tag)
		}
		if reservedFields[attr.Name] {
			return fmt.Errorf("%w: kind %q: attribute name %q is reserved", ErrInvalidKind, k.Tag, attr.Name)
		}
		if seen[attr.Name] {
			return fmt.Errorf("%w: kind %q: duplicate attribute %q", ErrInvalidKind, k.Tag, attr.Name)
		}
		seen[attr.Name] = true

		if !identifierPattern.MatchString(attr.Column) {
			return fmt.Errorf("%w: kind %q: attribute column %q is not a valid identifier", ErrInvalidKind, k.Tag, attr.Column)
		}
		if attr.Format != "" {
			if out := fmt.Sprintf(attr.Format, 1.0); strings.Contains(out, "%!") {
				return fmt.Errorf("%w: kind %q: attribute %q: format %q does not accept a number", ErrInvalidKind, k.Tag, attr.Name, attr.Format)
			}
		}
	}

	return nil
}
