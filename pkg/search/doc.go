// Package search ranks pilots, clubs, airports and any other registered
// entity kind against free-text input in a single store query.
//
// # Overview
//
// Input is split on whitespace, each token is escaped for LIKE matching and
// `*` becomes the store wildcard. With several tokens, the whole phrase is
// scored as one more token. Every token is scored against a kind's display
// name with four pattern classes, weighted by token length:
//
//	exact       t        5 x len(t)
//	prefix      t%       3 x len(t)
//	word start  % t%     2 x len(t)
//	substring   %t%      1 x len(t)
//
// Weights add up across tokens and classes. One sub-query per kind keeps rows
// with a positive weight; the sub-queries are combined with UNION ALL, ordered
// by weight and truncated to the limit (default 20, at most 100).
//
// # Scoring Without A Store
//
// Score and Explain evaluate the same sum in Go, which is what the explain
// view and the tests use. They fold case like ILIKE; the Dialect methods of
// the same names follow the store, so SQLite.Score leaves non-ASCII letters
// case-sensitive as its LIKE does:
//
//	tokens, _ := search.Parse("lv aachen")
//	weight := search.Score("LV Aachen", tokens) // 107
//
// # Usage Example
//
//	registry := entities.Default()
//	svc := search.NewService(
//		search.NewEngine(db, search.Postgres, registry),
//		search.NewEnricher(db, search.Postgres, registry),
//		search.WithRecorder(metrics),
//	)
//
//	resp, err := svc.Search(ctx, search.Request{Text: "aachen", Limit: 20})
//
// # Related Packages
//
//   - pkg/entities: Kind registry the queries are built from
//   - pkg/cache: Response cache in front of Service.Search
//   - pkg/api: HTTP endpoint
package search
