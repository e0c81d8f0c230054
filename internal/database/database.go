package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travel-admin-api/internal/config"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// InitDB opens the Postgres pool used by the postgres backend driver and
// verifies it is reachable.
func InitDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	Configure(db, cfg.Database)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Configure applies the pool limits in cfg to db.
func Configure(db *sql.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}
