// Package storetest opens throwaway record stores for tests in other packages.
package storetest

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/vocasync/store"
)

// NewGorm returns a GormStore on a private in-memory sqlite database with the
// records table migrated. It is closed when the test ends.
func NewGorm(t testing.TB) *store.GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: gets its own database
	sqlDB.SetMaxOpenConns(1)

	s := store.NewGormStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewPebble returns a PebbleStore on an in-memory filesystem.
func NewPebble(t testing.TB) *store.PebbleStore {
	t.Helper()

	s, err := store.OpenPebble("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// Backends runs fn once per store implementation, each on a fresh store.
func Backends(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("gorm", func(t *testing.T) { fn(t, NewGorm(t)) })
	t.Run("pebble", func(t *testing.T) { fn(t, NewPebble(t)) })
}
