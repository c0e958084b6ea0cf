package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"federated-auth/internal/auth"
	"federated-auth/internal/db"
)

// PostgresStore keeps identities in the identities/identity_links tables.
// The (provider, subject) unique constraint backs the one-identity-per-subject
// rule across processes.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectIdentity = `
	SELECT id, email, display_name, avatar_url, last_provider,
	       last_access_token, last_refresh_token, created_at, last_login_at
	FROM identities
`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, selectIdentity+`WHERE id = $1`, id)
	return s.scan(ctx, row)
}

func (s *PostgresStore) FindByProviderSubject(
	ctx context.Context,
	provider auth.Provider,
	subject string,
) (*Identity, error) {
	row := s.db.QueryRowContext(ctx, selectIdentity+`
		WHERE id = (
			SELECT identity_id FROM identity_links
			WHERE provider = $1 AND subject = $2
		)
	`, string(provider), subject)
	return s.scan(ctx, row)
}

func (s *PostgresStore) scan(ctx context.Context, row *sql.Row) (*Identity, error) {
	var (
		i            Identity
		lastProvider string
	)
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.AvatarURL,
		&lastProvider,
		&i.LastAccessToken,
		&i.LastRefreshToken,
		&i.CreatedAt,
		&i.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity: load: %w", err)
	}
	i.LastAuthenticatedProvider = auth.Provider(lastProvider)

	links, err := s.links(ctx, i.ID)
	if err != nil {
		return nil, err
	}
	i.ProviderLinks = links
	return &i, nil
}

func (s *PostgresStore) links(ctx context.Context, id string) (map[auth.Provider]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, subject FROM identity_links WHERE identity_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("identity: load links: %w", err)
	}
	defer rows.Close()

	links := make(map[auth.Provider]string)
	for rows.Next() {
		var provider, subject string
		if err := rows.Scan(&provider, &subject); err != nil {
			return nil, fmt.Errorf("identity: scan link: %w", err)
		}
		links[auth.Provider(provider)] = subject
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: load links: %w", err)
	}
	return links, nil
}

func (s *PostgresStore) Put(ctx context.Context, identity *Identity) (err error) {
	if identity == nil || identity.ID == "" {
		return ErrInvalidIdentity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("identity: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (
			id, email, display_name, avatar_url, last_provider,
			last_access_token, last_refresh_token, created_at, last_login_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			last_provider = EXCLUDED.last_provider,
			last_access_token = EXCLUDED.last_access_token,
			last_refresh_token = EXCLUDED.last_refresh_token,
			last_login_at = EXCLUDED.last_login_at
	`,
		identity.ID,
		identity.Email,
		identity.DisplayName,
		identity.AvatarURL,
		string(identity.LastAuthenticatedProvider),
		identity.LastAccessToken,
		identity.LastRefreshToken,
		identity.CreatedAt,
		identity.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("identity: upsert: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM identity_links WHERE identity_id = $1
	`, identity.ID); err != nil {
		return fmt.Errorf("identity: reset links: %w", err)
	}

	for provider, subject := range identity.ProviderLinks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO identity_links (identity_id, provider, subject)
			VALUES ($1, $2, $3)
		`, identity.ID, string(provider), subject)
		if db.IsUniqueViolation(err) {
			return ErrLinkConflict
		}
		if err != nil {
			return fmt.Errorf("identity: insert link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrLinkConflict
		}
		return fmt.Errorf("identity: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("identity: delete: %w", err)
	}
	return nil
}
