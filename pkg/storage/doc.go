// Package storage opens the connections the search service reads from.
//
// # Overview
//
// The entity tables live in PostgreSQL in production and in SQLite for local
// runs and tests. ConnectionManager wraps the primary and any read replicas
// and satisfies search.Querier, so the engine and enricher never see which
// physical connection served a query.
//
//	cm, err := storage.NewConnectionManager(storage.ConnectionConfig{
//		Driver:      "postgres",
//		PrimaryURL:  "postgres://localhost/skysearch?sslmode=disable",
//		ReplicaURLs: storage.ParseReplicaURLs(os.Getenv("REPLICAS")),
//		MaxConns:    25,
//	}, logger)
//	engine := search.NewEngine(cm, cm.Dialect(), registry)
//
// SQLite stores are pinned to a single connection; replicas are rejected.
//
// NewRedisClient builds the optional client behind the shared result cache.
package storage
