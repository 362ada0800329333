package storage

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openglide/skysearch/pkg/observability"
	"github.com/openglide/skysearch/pkg/search"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestParseReplicaURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single URL", "postgres://localhost:5432/db", []string{"postgres://localhost:5432/db"}},
		{
			"URLs with whitespace",
			" postgres://host1:5432/db , postgres://host2:5432/db ",
			[]string{"postgres://host1:5432/db", "postgres://host2:5432/db"},
		},
		{
			"URLs with empty entries",
			"postgres://host1:5432/db,,postgres://host2:5432/db,",
			[]string{"postgres://host1:5432/db", "postgres://host2:5432/db"},
		},
		{"only commas and whitespace", " , , , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReplicaURLs(tt.input))
		})
	}
}

func TestConnectionConfig_DriverName(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"", "postgres"},
		{"postgres", "postgres"},
		{"pgx", "postgres"},
		{"sqlite", "sqlite3"},
		{"sqlite3", "sqlite3"},
		{"mysql", "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			assert.Equal(t, tt.want, ConnectionConfig{Driver: tt.driver}.driverName())
		})
	}
}

func TestNewConnectionManager_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.db")

	cm, err := NewConnectionManager(ConnectionConfig{
		Driver:      "sqlite3",
		PrimaryURL:  path,
		ReplicaURLs: []string{"ignored.db"},
		MaxConns:    10,
	}, testLogger())
	require.NoError(t, err)
	defer cm.Close()

	assert.Equal(t, search.SQLite, cm.Dialect())
	assert.Empty(t, cm.AllReplicas())
	assert.Equal(t, 1, cm.Primary().Stats().MaxOpenConnections)
	assert.Same(t, cm.Primary(), cm.Replica())

	_, err = cm.Primary().Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT); INSERT INTO users (name) VALUES ('Turbo')`)
	require.NoError(t, err)

	rows, err := cm.QueryContext(context.Background(), "SELECT name FROM users WHERE id = ?", 1)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	assert.Equal(t, "Turbo", name)

	assert.Error(t, cm.AddReplica("other.db"))
	assert.NoError(t, cm.HealthCheck(context.Background()))
}

func TestNewConnectionManager_UnsupportedDriver(t *testing.T) {
	cm, err := NewConnectionManager(ConnectionConfig{Driver: "mysql", PrimaryURL: "x"}, nil)
	assert.Error(t, err)
	assert.Nil(t, cm)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestNewConnectionManager_InvalidPrimary(t *testing.T) {
	t.Run("invalid primary URL", func(t *testing.T) {
		cm, err := NewConnectionManager(ConnectionConfig{
			PrimaryURL: "invalid://badurl",
			MaxConns:   10,
			Timeout:    5 * time.Second,
		}, testLogger())
		assert.Error(t, err)
		assert.Nil(t, cm)
		assert.True(t, strings.Contains(err.Error(), "failed to open primary connection") ||
			strings.Contains(err.Error(), "failed to ping primary"))
	})

	t.Run("unreachable primary", func(t *testing.T) {
		cm, err := NewConnectionManager(ConnectionConfig{
			Driver:     "postgres",
			PrimaryURL: "postgres://nonexistent:9999/testdb?connect_timeout=1",
			MaxConns:   10,
			Timeout:    2 * time.Second,
		}, testLogger())
		assert.Error(t, err)
		assert.Nil(t, cm)
		assert.Contains(t, err.Error(), "failed to ping primary")
	})
}

func TestConnectionManager_Replica(t *testing.T) {
	t.Run("no replicas - fallback to primary", func(t *testing.T) {
		primaryDB := &sql.DB{}
		cm := &ConnectionManager{primary: primaryDB}

		assert.Same(t, primaryDB, cm.Replica())
	})

	t.Run("round-robin selection with multiple replicas", func(t *testing.T) {
		replica1, replica2, replica3 := &sql.DB{}, &sql.DB{}, &sql.DB{}
		cm := &ConnectionManager{
			primary:  &sql.DB{},
			replicas: []*sql.DB{replica1, replica2, replica3},
		}

		selections := make(map[*sql.DB]int)
		for i := 0; i < 30; i++ {
			selections[cm.Replica()]++
		}

		assert.Equal(t, 10, selections[replica1])
		assert.Equal(t, 10, selections[replica2])
		assert.Equal(t, 10, selections[replica3])
	})
}

func TestConnectionManager_QueryContextUsesReplica(t *testing.T) {
	primaryDB, primaryMock, err := sqlmock.New()
	require.NoError(t, err)
	defer primaryDB.Close()

	replicaDB, replicaMock, err := sqlmock.New()
	require.NoError(t, err)
	defer replicaDB.Close()

	replicaMock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	cm := &ConnectionManager{
		primary:  primaryDB,
		replicas: []*sql.DB{replicaDB},
	}

	rows, err := cm.QueryContext(context.Background(), "SELECT 1")
	require.NoError(t, err)
	rows.Close()

	assert.NoError(t, replicaMock.ExpectationsWereMet())
	assert.NoError(t, primaryMock.ExpectationsWereMet())
}

func TestConnectionManager_AllReplicasReturnsCopy(t *testing.T) {
	replica1 := &sql.DB{}
	cm := &ConnectionManager{
		primary:  &sql.DB{},
		replicas: []*sql.DB{replica1},
	}

	replicas := cm.AllReplicas()
	replicas[0] = &sql.DB{}

	assert.Same(t, replica1, cm.AllReplicas()[0])
}

func TestConnectionManager_HealthCheck(t *testing.T) {
	newPinger := func(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return db, mock
	}

	t.Run("healthy primary and replicas", func(t *testing.T) {
		primaryDB, primaryMock := newPinger(t)
		replicaDB, replicaMock := newPinger(t)
		primaryMock.ExpectPing()
		replicaMock.ExpectPing()

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}

		assert.NoError(t, cm.HealthCheck(context.Background()))
		assert.NoError(t, primaryMock.ExpectationsWereMet())
		assert.NoError(t, replicaMock.ExpectationsWereMet())
	})

	t.Run("unhealthy primary", func(t *testing.T) {
		primaryDB, primaryMock := newPinger(t)
		primaryMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primaryDB}

		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "primary unhealthy")
	})

	t.Run("some replicas unhealthy", func(t *testing.T) {
		primaryDB, primaryMock := newPinger(t)
		replica1DB, replica1Mock := newPinger(t)
		replica2DB, replica2Mock := newPinger(t)
		primaryMock.ExpectPing()
		replica1Mock.ExpectPing()
		replica2Mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replica1DB, replica2DB}}

		assert.NoError(t, cm.HealthCheck(context.Background()))
	})

	t.Run("all replicas unhealthy", func(t *testing.T) {
		primaryDB, primaryMock := newPinger(t)
		replica1DB, replica1Mock := newPinger(t)
		replica2DB, replica2Mock := newPinger(t)
		primaryMock.ExpectPing()
		replica1Mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		replica2Mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replica1DB, replica2DB}}

		err := cm.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all replicas unhealthy: replica-0, replica-1")
	})
}

func TestConnectionManager_Stats(t *testing.T) {
	primaryDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer primaryDB.Close()

	replicaDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer replicaDB.Close()

	cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}

	stats := cm.Stats()
	assert.Len(t, stats.Replicas, 1)
}

func TestConnectionManager_RemoveUnhealthyReplicas(t *testing.T) {
	replica1DB, replica1Mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer replica1DB.Close()

	replica2DB, replica2Mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer replica2DB.Close()

	replica1Mock.ExpectPing()
	replica2Mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	replica2Mock.ExpectClose()

	cm := &ConnectionManager{
		primary:  &sql.DB{},
		replicas: []*sql.DB{replica1DB, replica2DB},
	}

	removed := cm.RemoveUnhealthyReplicas(context.Background())
	assert.Equal(t, 1, removed)
	require.Len(t, cm.replicas, 1)
	assert.Same(t, replica1DB, cm.replicas[0])
}

func TestConnectionManager_AddReplica_Unreachable(t *testing.T) {
	cm := &ConnectionManager{
		primary: &sql.DB{},
		config: ConnectionConfig{
			Driver:   "postgres",
			MaxConns: 10,
			Timeout:  1 * time.Second,
		},
	}

	err := cm.AddReplica("postgres://nonexistent:9999/testdb?connect_timeout=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping replica")
	assert.Empty(t, cm.AllReplicas())
}

func TestConnectionManager_Close(t *testing.T) {
	t.Run("close primary and replicas", func(t *testing.T) {
		primaryDB, primaryMock, err := sqlmock.New()
		require.NoError(t, err)
		replicaDB, replicaMock, err := sqlmock.New()
		require.NoError(t, err)

		primaryMock.ExpectClose()
		replicaMock.ExpectClose()

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}

		assert.NoError(t, cm.Close())
		assert.Nil(t, cm.replicas)
		assert.NoError(t, primaryMock.ExpectationsWereMet())
		assert.NoError(t, replicaMock.ExpectationsWereMet())
	})

	t.Run("close with errors", func(t *testing.T) {
		primaryDB, primaryMock, err := sqlmock.New()
		require.NoError(t, err)
		replicaDB, replicaMock, err := sqlmock.New()
		require.NoError(t, err)

		primaryMock.ExpectClose().WillReturnError(errors.New("primary close error"))
		replicaMock.ExpectClose().WillReturnError(errors.New("replica close error"))

		cm := &ConnectionManager{primary: primaryDB, replicas: []*sql.DB{replicaDB}}

		err = cm.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection close errors")
		assert.Contains(t, err.Error(), "primary close error")
		assert.Contains(t, err.Error(), "replica-0 close error")
	})
}

func TestConnectionManager_StartHealthCheckRoutine(t *testing.T) {
	replicaDB, replicaMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer replicaDB.Close()

	replicaMock.ExpectPing().WillReturnError(errors.New("connection lost"))
	replicaMock.ExpectClose()

	cm := &ConnectionManager{
		primary:  &sql.DB{},
		replicas: []*sql.DB{replicaDB},
		logger:   testLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cm.StartHealthCheckRoutine(ctx, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(cm.AllReplicas()) == 0
	}, time.Second, 10*time.Millisecond)
}
