package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a UserRepository backed by the given connection.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Get loads a single user by id. Returns not_found_user when absent.
func (r *UserRepository) Get(ctx context.Context, id string) (*types.User, error) {
	var u types.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, role, google_connected, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.GoogleConnected, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "loading user", err)
	}
	return &u, nil
}

// SetGoogleConnected flips the user's connected flag. Used by the credential
// store on save and disconnect.
func (r *UserRepository) SetGoogleConnected(ctx context.Context, id string, connected bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET google_connected = $2, updated_at = NOW() WHERE id = $1`,
		id, connected,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating google_connected flag", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}
