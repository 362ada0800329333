// Package entities declares the searchable entity kinds.
//
// # Overview
//
// A kind names a backing table, the display-name column every search scores
// against, and the optional attributes copied into results (a club's website,
// an airport's ICAO code and frequency). Kinds are configuration data: they
// are registered once at startup and validated before the first request.
//
// # Registration
//
// Built-in kinds:
//
//	registry := entities.Default() // user, club, airport
//
// From a file:
//
//	registry, err := entities.LoadFile("kinds.yaml")
//	if err := registry.CheckStore(ctx, db); err != nil {
//		log.Fatal(err) // errors.Is(err, entities.ErrInvalidKind)
//	}
//
// # Related Packages
//
//   - pkg/search: builds one scoring query per registered kind
package entities
