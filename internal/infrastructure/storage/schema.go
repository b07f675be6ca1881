// Package storage implements the Postgres repositories backing sources,
// articles, subscriptions, and delivery records.
package storage

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		url            TEXT NOT NULL UNIQUE,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		fetch_interval BIGINT NOT NULL DEFAULT 1800,
		last_fetched   TIMESTAMPTZ,
		last_status    TEXT NOT NULL DEFAULT 'pending',
		last_error     TEXT NOT NULL DEFAULT '',
		article_count  BIGINT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id            BIGSERIAL PRIMARY KEY,
		source_id     BIGINT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		title         TEXT NOT NULL,
		content       TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		canonical_url TEXT NOT NULL UNIQUE,
		article_link  TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		publish_date  TIMESTAMPTZ,
		author        TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id         BIGSERIAL PRIMARY KEY,
		owner_id   BIGINT NOT NULL,
		keyword    TEXT NOT NULL,
		aliases    TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (owner_id, keyword)
	)`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		owner_id   BIGINT NOT NULL,
		article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		keyword    TEXT NOT NULL,
		score      DOUBLE PRECISION NOT NULL,
		sent_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner_id, article_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_sent_at ON deliveries (sent_at)`,
}

// Bootstrap creates the schema when it does not exist yet. Statements are
// idempotent, so repeated startups are safe.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
