// Package cli provides the skysearch command-line interface.
//
// # Overview
//
// This package implements the `skysearch-cli` tool for running ranked searches
// against an entity store without going through the HTTP server. It shares the
// search pipeline, the kind registry and the connection layer with the server.
//
// # Commands
//
// search: Rank every configured kind against the text
//
//	skysearch-cli search \
//		--driver postgres \
//		--url postgres://localhost/skylines?sslmode=disable \
//		--limit 10 \
//		lv aachen
//
// Output is a table of kind, id, name, weight and attributes. With --explain
// each row is followed by the matched patterns and their weights. With --json
// the response is written in the same shape the HTTP API returns.
//
// kinds: List the searchable kinds
//
//	skysearch-cli kinds --kinds-file ./kinds.yaml --check
//
// --check verifies every kind's table and columns and prints row counts.
//
// # Configuration
//
// Flags take precedence over the environment, which takes precedence over
// skysearch.yaml in the working directory (or the file passed with --config):
//
//	SKYSEARCH_STORE_DRIVER   store driver (postgres or sqlite3)
//	SKYSEARCH_STORE_URL      store connection URL
//	SKYSEARCH_KINDS_FILE     YAML file defining the searchable kinds
//
// A config file uses the flag names as keys:
//
//	driver: sqlite3
//	url: ./skylines.db
//	kinds-file: ./kinds.yaml
package cli
