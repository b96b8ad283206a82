package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/vocasync/store"
)

// OpenStore connects the configured backend and makes sure its schema exists.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case DriverPebble:
		if err := os.MkdirAll(cfg.PebbleDir, 0o755); err != nil {
			return nil, fmt.Errorf("create pebble dir: %w", err)
		}
		s, err := store.OpenPebble(cfg.PebbleDir, &pebble.Options{})
		if err != nil {
			return nil, err
		}
		slog.Info("pebble store opened", "dir", cfg.PebbleDir)
		return s, nil
	case DriverPostgres, DriverSQLite:
		db, err := OpenDB(cfg)
		if err != nil {
			return nil, err
		}
		s := store.NewGormStore(db)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		slog.Info("sql store connected & migrated", "driver", cfg.StoreDriver)
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// OpenDB opens the gorm connection for the postgres or sqlite driver and
// tunes its pool.
func OpenDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store driver %q is not SQL", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger(cfg.LogLevel)})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.StoreDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}
	if cfg.StoreDriver == DriverSQLite {
		// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	return db, nil
}

// gormLogger routes gorm's output through slog. SQL statements are only
// logged at debug level.
func gormLogger(level slog.Level) logger.Interface {
	gormLevel := logger.Warn
	switch {
	case level <= slog.LevelDebug:
		gormLevel = logger.Info
	case level >= slog.LevelError:
		gormLevel = logger.Error
	}
	return logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
}
