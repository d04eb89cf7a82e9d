package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps *sql.DB together with the driver it was opened with, so the
// store can branch on the few places where the dialects differ.
type DB struct {
	*sql.DB
	Driver string
}

// Connect opens a database selected by the DATABASE_URL scheme.
// postgres://... goes to lib/pq; sqlite://path (the default) goes to the
// pure-Go sqlite driver, matching the original deployment default.
func Connect(databaseURL string) (*DB, error) {
	driver, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent handlers;
		// mutations stay atomic per call either way.
		conn.SetMaxOpenConns(1)
	}

	return &DB{DB: conn, Driver: driver}, nil
}

func parseURL(databaseURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		// sqlite:///task_management.db means a relative path, like the
		// original sqlalchemy URL did.
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			return "", "", fmt.Errorf("db: empty sqlite path in %q", databaseURL)
		}
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("db: unsupported DATABASE_URL %q", databaseURL)
	}
}

// Migrate creates the schema at startup. The original service did the same
// in its lifespan hook; there is no separate migration tooling.
func (d *DB) Migrate() error {
	for _, stmt := range schema(d.Driver) {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("db: migrate: %w", err)
		}
	}
	return nil
}

func schema(driver string) []string {
	if driver == DriverPostgres {
		return []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id SERIAL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(20) NOT NULL DEFAULT 'pending',
				priority VARCHAR(20) NOT NULL DEFAULT 'medium',
				due_date TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				password VARCHAR(255) NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			priority TEXT NOT NULL DEFAULT 'medium',
			due_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
}
