// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sqlite is the transactional storage backend. It keeps the same
// repository contracts as the flat-file backend so the verification
// engine and the flow controllers never notice which one is wired in.
package sqlite

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Railfan3/RevenueRadar/internal/repository"
	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open creates a database connection with sensible SQLite settings and
// runs all pending migrations.
func Open(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = "./data/revenueradar.db"
	}

	// Create directory for file-based databases
	if !strings.HasPrefix(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}

	dsn = addDefaultParams(dsn)

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// NewRepository bundles both stores over db.
func NewRepository(db *sqlx.DB) *repository.Repository {
	return &repository.Repository{
		Users:      NewUsers(db),
		Challenges: NewChallenges(db),
	}
}

// addDefaultParams adds recommended SQLite parameters if not already present.
func addDefaultParams(dsn string) string {
	defaults := map[string]string{
		"_txlock":       "immediate",
		"_busy_timeout": "5000",
		"_foreign_keys": "on",
	}

	for key, value := range defaults {
		if !strings.Contains(dsn, key) {
			separator := "?"
			if strings.Contains(dsn, "?") {
				separator = "&"
			}
			dsn += separator + key + "=" + value
		}
	}

	return dsn
}

// runMigrations runs all pending goose migrations.
func runMigrations(db *sqlx.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.Up(db.DB, "migrations")
}
