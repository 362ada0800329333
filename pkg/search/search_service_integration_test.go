//go:build integration

package search

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openglide/skysearch/pkg/entities"
)

// setupPostgresTestDB starts a PostgreSQL container with the entity tables
func setupPostgresTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("search_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgresContainer.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	require.NoError(t, runMigrations(db))
	return db
}

// runMigrations applies every *.up.sql file under migrations/ in order
func runMigrations(db *sql.DB) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(wd, "..", "..", "migrations", "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func TestPostgres_Search(t *testing.T) {
	db := setupPostgresTestDB(t)

	_, err := db.Exec(`
		INSERT INTO users (name) VALUES ('Tobias Bieniek'), ('Zoë Ärmel');
		INSERT INTO clubs (name, website) VALUES ('LV Aachen', 'https://lv-aachen.de'), ('SFG Bonn', '');
		INSERT INTO airports (name, icao, frequency) VALUES ('Aachen Merzbrück', 'EDKA', 122.875), ('Bonn Hangelar', 'EDKB', NULL);
	`)
	require.NoError(t, err)

	registry := entities.Default()
	require.NoError(t, registry.CheckStore(context.Background(), db))

	svc := NewService(NewEngine(db, Postgres, registry), NewEnricher(db, Postgres, registry))

	t.Run("ranked and enriched", func(t *testing.T) {
		resp, err := svc.Search(context.Background(), Request{Text: "aachen"})
		require.NoError(t, err)
		require.Equal(t, 2, resp.Count)

		assert.Equal(t, "airport", resp.Results[0].Kind)
		assert.Equal(t, map[string]string{"icao": "EDKA", "frequency": "122.875"}, resp.Results[0].Fields)
		assert.Equal(t, "club", resp.Results[1].Kind)
		assert.Equal(t, "https://lv-aachen.de", resp.Results[1].Fields["website"])
	})

	t.Run("ILIKE ignores case", func(t *testing.T) {
		lower, err := svc.Engine().Search(context.Background(), "bieniek", 0)
		require.NoError(t, err)
		upper, err := svc.Engine().Search(context.Background(), "BIENIEK", 0)
		require.NoError(t, err)

		require.Len(t, lower, 1)
		assert.Equal(t, lower, upper)
	})

	t.Run("weights match pure score", func(t *testing.T) {
		for _, text := range []string{"bonn", "lv aachen", "merzbr*", "e"} {
			tokens, err := Parse(text)
			require.NoError(t, err)

			results, err := svc.Engine().SearchTokens(context.Background(), tokens, MaxLimit)
			require.NoError(t, err)
			for _, r := range results {
				assert.Equal(t, Score(r.Name, tokens), r.Weight, "%s: %s", text, r.Name)
			}
		}
	})

	t.Run("trailing backslash is literal", func(t *testing.T) {
		_, err := svc.Search(context.Background(), Request{Text: `aachen\`})
		assert.NoError(t, err)
	})
}
