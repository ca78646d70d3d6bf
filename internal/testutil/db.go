// Package testutil provides throw-away databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/monocle-dev/tracker/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database that lives for the duration of the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "tracker.db") +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	conn, err := db.Open(context.Background(), "sqlite", dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return conn
}
