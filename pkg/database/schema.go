package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// voted_for carries no foreign key: deleting a candidate must not touch
// recorded votes, which then surface as orphans in the results.
var schemaUp = []string{
	`CREATE TABLE IF NOT EXISTS candidates (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL CHECK (btrim(name) <> ''),
		class      TEXT,
		photo_url  TEXT,
		vision     TEXT,
		mission    TEXT,
		votes      INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS voters (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		class      TEXT NOT NULL,
		email      TEXT,
		has_voted  BOOLEAN NOT NULL DEFAULT false,
		voted_at   TIMESTAMPTZ,
		voted_for  BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT voters_name_class_key UNIQUE (name, class),
		CONSTRAINT voters_vote_complete CHECK (has_voted = false OR (voted_for IS NOT NULL AND voted_at IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_voters_has_voted ON voters (has_voted)`,
	`CREATE INDEX IF NOT EXISTS idx_voters_voted_at ON voters (voted_at DESC NULLS LAST)`,
	`CREATE TABLE IF NOT EXISTS election_settings (
		id            BIGSERIAL PRIMARY KEY,
		election_name TEXT,
		start_date    TIMESTAMPTZ,
		end_date      TIMESTAMPTZ,
		is_active     BOOLEAN NOT NULL DEFAULT false,
		allow_voting  BOOLEAN NOT NULL DEFAULT false,
		announcement  TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE OR REPLACE FUNCTION notify_election_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + ChangesChannel + `', TG_TABLE_NAME);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS voters_notify_change ON voters`,
	`CREATE TRIGGER voters_notify_change
		AFTER INSERT OR UPDATE OR DELETE ON voters
		FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change()`,
	`DROP TRIGGER IF EXISTS candidates_notify_change ON candidates`,
	`CREATE TRIGGER candidates_notify_change
		AFTER INSERT OR UPDATE OR DELETE ON candidates
		FOR EACH STATEMENT EXECUTE FUNCTION notify_election_change()`,
}

var schemaDown = []string{
	`DROP TABLE IF EXISTS voters CASCADE`,
	`DROP TABLE IF EXISTS candidates CASCADE`,
	`DROP TABLE IF EXISTS election_settings CASCADE`,
	`DROP FUNCTION IF EXISTS notify_election_change() CASCADE`,
}

// ApplySchema creates tables, constraints and the change triggers. It is idempotent.
func ApplySchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, schemaUp)
}

// DropSchema removes every table owned by the service
func DropSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, schemaDown)
}

func execAll(ctx context.Context, db Execer, queries []string) error {
	for _, query := range queries {
		if _, err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
