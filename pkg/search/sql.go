package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openglide/skysearch/pkg/entities"
)

// Dialect captures the store differences the query builder cares about.
type Dialect struct {
	// Name is the database/sql driver name
	Name string

	// MatchOp is the case-insensitive pattern match operator
	MatchOp string

	// Placeholder prefixes the numbered bind parameters: $1 or ?1
	Placeholder string

	// ASCIIFold is set when MatchOp folds ASCII letters only
	ASCIIFold bool
}

var (
	// Postgres matches with ILIKE and binds $n parameters.
	Postgres = Dialect{Name: "postgres", MatchOp: "ILIKE", Placeholder: "$"}

	// SQLite matches with LIKE, which is case-insensitive for ASCII only, and
	// binds ?n parameters.
	SQLite = Dialect{Name: "sqlite3", MatchOp: "LIKE", Placeholder: "?", ASCIIFold: true}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// NewArgs returns an empty bind-parameter list for the dialect.
func (d Dialect) NewArgs() *Args {
	return &Args{dialect: d}
}

// Args accumulates bind parameters while a query is rendered.
type Args struct {
	dialect  Dialect
	values   []any
	patterns map[string]string
}

// Add binds v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return a.dialect.Placeholder + strconv.Itoa(len(a.values))
}

// Pattern binds a LIKE pattern once and returns the same placeholder for
// every later use of it, so every kind shares one set of parameters.
func (a *Args) Pattern(pattern string) string {
	if placeholder, ok := a.patterns[pattern]; ok {
		return placeholder
	}
	if a.patterns == nil {
		a.patterns = make(map[string]string)
	}
	placeholder := a.Add(pattern)
	a.patterns[pattern] = placeholder
	return placeholder
}

// Values returns the bound values in placeholder order.
func (a *Args) Values() []any {
	return a.values
}

// WeightExpr renders the weight sum of column for tokens: one CASE term per
// distinct pattern, patterns bound as parameters, weights as integer
// literals. An empty token set renders 0.
//
// Contributions sharing a pattern fire together, so they collapse into one
// term carrying their summed weight. The terms are added as a balanced tree
// to keep the expression depth logarithmic in the number of tokens.
func WeightExpr(d Dialect, column string, tokens TokenSet, args *Args) string {
	merged := mergePatterns(Contributions(tokens))
	if len(merged) == 0 {
		return "0"
	}

	terms := make([]string, len(merged))
	for i, c := range merged {
		terms[i] = fmt.Sprintf("CASE WHEN %s %s %s ESCAPE '\\' THEN %d ELSE 0 END",
			column, d.MatchOp, args.Pattern(c.Pattern), c.Weight)
	}
	if len(terms) == 1 {
		return "(" + terms[0] + ")"
	}
	return sumTree(terms)
}

// mergePatterns sums the weights of contributions with equal patterns,
// keeping first-seen order.
func mergePatterns(contributions []Contribution) []Contribution {
	index := make(map[string]int, len(contributions))
	merged := make([]Contribution, 0, len(contributions))
	for _, c := range contributions {
		if i, ok := index[c.Pattern]; ok {
			merged[i].Weight += c.Weight
			continue
		}
		index[c.Pattern] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

func sumTree(terms []string) string {
	if len(terms) == 1 {
		return terms[0]
	}
	mid := len(terms) / 2
	return "(" + sumTree(terms[:mid]) + " + " + sumTree(terms[mid:]) + ")"
}

// BuildKindQuery renders the candidate-row query for one kind. Identifiers
// come from the validated registry; user input only reaches bound patterns.
func BuildKindQuery(d Dialect, kind entities.Kind, tokens TokenSet, args *Args) string {
	var b strings.Builder
	b.WriteString("SELECT kind, id, name, weight FROM (SELECT '")
	b.WriteString(kind.Tag)
	b.WriteString("' AS kind, ")
	b.WriteString(kind.IDColumn)
	b.WriteString(" AS id, ")
	b.WriteString(kind.NameColumn)
	b.WriteString(" AS name, ")
	b.WriteString(WeightExpr(d, kind.NameColumn, tokens, args))
	b.WriteString(" AS weight FROM ")
	b.WriteString(kind.Table)
	b.WriteString(") AS ")
	b.WriteString(kindAlias(kind.Tag))
	b.WriteString(" WHERE weight > 0")
	return b.String()
}

// BuildSearchQuery renders the full search: one sub-query per kind in the
// given order, combined with UNION ALL, ordered by weight and truncated to
// limit. Kind and id break weight ties so the order is deterministic.
func BuildSearchQuery(d Dialect, kinds []entities.Kind, tokens TokenSet, limit int) (string, []any) {
	args := d.NewArgs()

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = BuildKindQuery(d, k, tokens, args)
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, " UNION ALL "))
	b.WriteString(" ORDER BY weight DESC, kind ASC, id ASC LIMIT ")
	b.WriteString(args.Add(limit))

	return b.String(), args.Values()
}

// BuildFetchQuery renders the fetch-by-id query used for enrichment.
func BuildFetchQuery(d Dialect, kind entities.Kind, ids []int64) (string, []any) {
	args := d.NewArgs()

	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = args.Add(id)
	}

	cols := append([]string{kind.IDColumn}, kind.Columns()...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(cols, ", "), kind.Table, kind.IDColumn, strings.Join(placeholders, ", "))

	return query, args.Values()
}

func kindAlias(tag string) string {
	return "kind_" + strings.ReplaceAll(tag, "-", "_")
}
