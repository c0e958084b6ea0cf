package db

import (
	"context"
	"database/sql"
)

const identityMigration = `
CREATE TABLE IF NOT EXISTS identities (
    id text PRIMARY KEY,
    email text NOT NULL DEFAULT '',
    display_name text NOT NULL DEFAULT '',
    avatar_url text NOT NULL DEFAULT '',
    last_provider text NOT NULL DEFAULT '',
    last_access_token text NOT NULL DEFAULT '',
    last_refresh_token text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    last_login_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS identity_links (
    identity_id text NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
    provider text NOT NULL,
    subject text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    PRIMARY KEY (identity_id, provider),
    CONSTRAINT identity_links_provider_subject_unique
        UNIQUE (provider, subject)
);
`

// Migrate creates the identity tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, identityMigration)
	return err
}
