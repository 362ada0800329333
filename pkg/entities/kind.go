package entities

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Attribute is an optional display field copied from an entity into its
// search result when the stored value is present and non-empty.
type Attribute struct {
	// Name is the key the value is emitted under (e.g. "website")
	Name string `yaml:"name"`

	// Column is the source column on the kind's table
	Column string `yaml:"column"`

	// Format is an optional fmt verb applied to numeric values (e.g. "%.3f")
	Format string `yaml:"format,omitempty"`
}

// Value renders a raw column value for output. An empty return value means
// the attribute must be omitted from the result.
//
// Formatted attributes follow numeric truthiness: a value that parses to zero
// is treated as absent, the same way an empty string is.
func (a Attribute) Value(raw sql.NullString) string {
	if !raw.Valid {
		return ""
	}
	value := strings.TrimSpace(raw.String)
	if value == "" {
		return ""
	}
	if a.Format == "" {
		return value
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	if f == 0 {
		return ""
	}
	return fmt.Sprintf(a.Format, f)
}

// Kind describes one searchable entity type and where its rows live.
type Kind struct {
	// Tag is the stable kind identifier emitted with every result (e.g. "club")
	Tag string `yaml:"tag"`

	// Table is the backing table (optionally schema qualified)
	Table string `yaml:"table"`

	// IDColumn is the integer primary key column (default: "id")
	IDColumn string `yaml:"id_column,omitempty"`

	// NameColumn is the display-name column used for scoring (default: "name")
	NameColumn string `yaml:"name_column,omitempty"`

	// Attributes are copied into enriched results when non-empty
	Attributes []Attribute `yaml:"attributes,omitempty"`
}

// withDefaults fills in the conventional id and name columns.
func (k Kind) withDefaults() Kind {
	if k.IDColumn == "" {
		k.IDColumn = "id"
	}
	if k.NameColumn == "" {
		k.NameColumn = "name"
	}
	if len(k.Attributes) > 0 {
		attrs := make([]Attribute, len(k.Attributes))
		copy(attrs, k.Attributes)
		for i := range attrs {
			if attrs[i].Column == "" {
				attrs[i].Column = attrs[i].Name
			}
		}
		k.Attributes = attrs
	}
	return k
}

// Columns returns the attribute source columns in declaration order.
func (k Kind) Columns() []string {
	cols := make([]string, len(k.Attributes))
	for i, attr := range k.Attributes {
		cols[i] = attr.Column
	}
	return cols
}
