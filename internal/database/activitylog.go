// Package database opens the portal's optional backing stores: the MariaDB
// activity log and the Redis settings cache. Both are created once at
// startup and injected.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver, registered for database/sql.
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/siddesa/portal/db/migrations"
	"github.com/siddesa/portal/internal/config"
)

// schemaTable is where golang-migrate tracks the activity log schema.
const schemaTable = "activity_schema_migrations"

// OpenActivityLog connects to the activity log database, waiting for
// MariaDB to come up, and applies the embedded migrations.
func OpenActivityLog(ctx context.Context, cfg config.ActivityLogConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening activity log database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForDB(ctx, db, cfg.ConnectAttempts); err != nil {
		db.Close()
		return nil, err
	}

	version, err := migrateActivityLog(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("activity log ready", slog.Uint64("schema_version", uint64(version)))
	return db, nil
}

// waitForDB pings db up to attempts times with exponential backoff.
func waitForDB(ctx context.Context, db *sql.DB, attempts int) error {
	attempts = max(attempts, 1)
	backoff := time.Second

	for attempt := 1; ; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := db.PingContext(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("pinging activity log database after %d attempts: %w", attempt, err)
		}

		slog.Warn("activity log database not ready",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// migrateActivityLog applies the embedded migrations and returns the
// resulting schema version.
func migrateActivityLog(db *sql.DB) (uint, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, fmt.Errorf("reading embedded migrations: %w", err)
	}
	driver, err := mysql.WithInstance(db, &mysql.Config{MigrationsTable: schemaTable})
	if err != nil {
		return 0, fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		return 0, fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrating activity log: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("reading activity log schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("activity log schema version %d is dirty", version)
	}
	return version, nil
}
