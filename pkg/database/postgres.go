package database

import (
	"database/sql"
	"fmt"

	"pq-sarfi/pkg/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB opens a PostgreSQL connection pool
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close closes the connection pool
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
