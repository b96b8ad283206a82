package store

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupGormStore opens an in-memory sqlite database with the records table.
func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second connection would see a different in-memory database
	sqlDB.SetMaxOpenConns(1)

	s := NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// setupPebbleStore opens a pebble database on an in-memory filesystem.
func setupPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()

	s, err := OpenPebble("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// backends runs fn once per store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("gorm", func(t *testing.T) { fn(t, setupGormStore(t)) })
	t.Run("pebble", func(t *testing.T) { fn(t, setupPebbleStore(t)) })
}

func stamp(v int64) *int64 {
	return &v
}
