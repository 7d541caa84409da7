package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// CredentialRow is the persisted, encrypted form of a user's provider
// credential. Secrets are ciphertext here; decryption happens only at the
// credential store boundary.
type CredentialRow struct {
	UserID                string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string
	Expiry                time.Time
	Scopes                []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CredentialRepository provides data access for the credentials table.
// One row per user, keyed by user_id.
type CredentialRepository struct {
	db DBTX
}

// NewCredentialRepository creates a CredentialRepository backed by the given
// connection (pool or transaction).
func NewCredentialRepository(db DBTX) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get loads the credential row for a user. Returns credential_not_connected
// when no row exists.
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*CredentialRow, error) {
	var row CredentialRow
	err := r.db.QueryRow(ctx,
		`SELECT user_id, access_token_encrypted, refresh_token_encrypted,
		        expiry, scopes, created_at, updated_at
		 FROM credentials WHERE user_id = $1`, userID,
	).Scan(&row.UserID, &row.AccessTokenEncrypted, &row.RefreshTokenEncrypted,
		&row.Expiry, &row.Scopes, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotConnected, "no credential stored for user", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "loading credential", err)
	}
	return &row, nil
}

// Upsert writes the full credential row, replacing any existing one for the
// user. Safe to call repeatedly; re-authorization simply overwrites.
func (r *CredentialRepository) Upsert(ctx context.Context, row *CredentialRow) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO credentials
		   (user_id, access_token_encrypted, refresh_token_encrypted, expiry, scopes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE
		   SET access_token_encrypted  = EXCLUDED.access_token_encrypted,
		       refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
		       expiry                  = EXCLUDED.expiry,
		       scopes                  = EXCLUDED.scopes,
		       updated_at              = NOW()`,
		row.UserID, row.AccessTokenEncrypted, row.RefreshTokenEncrypted, row.Expiry, row.Scopes,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "upserting credential", err)
	}
	return nil
}

// UpdateAccessToken replaces only the access secret and expiry after a
// successful refresh; the refresh secret and scopes are untouched.
func (r *CredentialRepository) UpdateAccessToken(ctx context.Context, userID, accessTokenEncrypted string, expiry time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE credentials
		 SET access_token_encrypted = $2, expiry = $3, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, accessTokenEncrypted, expiry,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating refreshed access token", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotConnected, "no credential stored for user", nil)
	}
	return nil
}

// Delete removes the credential row if present. Returns whether a row was
// actually deleted; deleting a nonexistent row is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "deleting credential", err)
	}
	return tag.RowsAffected() > 0, nil
}
