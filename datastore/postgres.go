package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	dbPingTimeout     = 5 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

// ErrStaleVersion is returned when a version-guarded update finds the
// record was modified since it was read.
var ErrStaleVersion = errors.New("account record modified concurrently")

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	api_token  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS email_accounts (
	id               TEXT PRIMARY KEY,
	email            TEXT NOT NULL UNIQUE,
	watch_expiration TIMESTAMPTZ,
	subscription_id  TEXT,
	version          BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS accounts (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id),
	provider         TEXT NOT NULL,
	access_token     TEXT,
	refresh_token    TEXT,
	expires_at       BIGINT,
	email_account_id TEXT REFERENCES email_accounts(id)
);

CREATE TABLE IF NOT EXISTS rules (
	id               TEXT PRIMARY KEY,
	email_account_id TEXT NOT NULL REFERENCES email_accounts(id),
	name             TEXT NOT NULL,
	position         INT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS extension_sessions (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_provider ON accounts (user_id, provider);
CREATE INDEX IF NOT EXISTS idx_rules_account_position ON rules (email_account_id, position);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
