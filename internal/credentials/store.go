// Package credentials owns the lifecycle of stored provider credentials.
// Token material is encrypted at rest; plaintext secrets exist only inside
// a single call frame on the way to or from the provider.
package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/crypto"
	"github.com/sabercontabilidade/onboarding/internal/db"
	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

// credentialRepo is the persistence surface the store needs.
type credentialRepo interface {
	Get(ctx context.Context, userID string) (*db.CredentialRow, error)
	Upsert(ctx context.Context, row *db.CredentialRow) error
	UpdateAccessToken(ctx context.Context, userID, accessTokenEncrypted string, expiry time.Time) error
	Delete(ctx context.Context, userID string) (bool, error)
}

// userConnector flips the user's connected flag alongside credential writes.
type userConnector interface {
	SetGoogleConnected(ctx context.Context, id string, connected bool) error
}

// ConnectionStatus reports whether a user has a usable stored credential.
type ConnectionStatus struct {
	UserID    string    `json:"user_id"`
	Connected bool      `json:"connected"`
	Expiry    time.Time `json:"expiry,omitzero"`
	Scopes    []string  `json:"scopes,omitempty"`
}

// Store serves decrypted, non-expired credentials to callers and hides the
// refresh exchange behind GetValid. All read paths treat a missing row and
// an unrefreshable row the same way: the user is not connected.
type Store struct {
	repo   credentialRepo
	users  userConnector
	cipher *crypto.TokenCipher
	tokens external.TokenClient
	clock  types.Clock
	logger *slog.Logger
}

// NewStore creates a credential store.
func NewStore(repo credentialRepo, users userConnector, cipher *crypto.TokenCipher, tokens external.TokenClient, clock types.Clock, logger *slog.Logger) *Store {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		users:  users,
		cipher: cipher,
		tokens: tokens,
		clock:  clock,
		logger: logger,
	}
}

// GetValid returns a decrypted credential whose access token is usable right
// now. An expired token triggers exactly one refresh attempt; on refresh
// failure the stored row is left untouched and the caller sees the user as
// not connected until a re-authorization replaces it.
func (s *Store) GetValid(ctx context.Context, userID string) (*types.Credential, error) {
	row, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	cred, err := s.decrypt(row)
	if err != nil {
		return nil, err
	}

	if !cred.Expired(s.clock.Now()) {
		return cred, nil
	}

	access, expiry, err := s.tokens.RefreshCredential(ctx, cred.RefreshToken)
	if err != nil {
		s.logger.WarnContext(ctx, "credential refresh failed; user must re-authorize",
			"user_id", userID,
			"error", err,
		)
		return nil, types.NewAppError(types.ErrCodeNotConnected,
			"stored credential expired and could not be refreshed", err)
	}

	accessEnc, err := s.cipher.Encrypt(access)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAccessToken(ctx, userID, accessEnc, expiry); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "credential refreshed", "user_id", userID, "expiry", expiry)

	cred.AccessToken = access
	cred.Expiry = expiry
	return cred, nil
}

// Save encrypts and persists credential material from a completed
// authorization and marks the user as connected. Saving over an existing row
// replaces it, so re-running the consent flow is always safe.
func (s *Store) Save(ctx context.Context, cred *types.Credential) error {
	accessEnc, err := s.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc, err := s.cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		return err
	}

	row := &db.CredentialRow{
		UserID:                cred.UserID,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		Expiry:                cred.Expiry,
		Scopes:                cred.Scopes,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return err
	}
	if err := s.users.SetGoogleConnected(ctx, cred.UserID, true); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "credential stored", "user_id", cred.UserID, "expiry", cred.Expiry)
	return nil
}

// Disconnect removes the stored credential and clears the user's connected
// flag. Disconnecting a user with no credential is a no-op, not an error.
func (s *Store) Disconnect(ctx context.Context, userID string) error {
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.SetGoogleConnected(ctx, userID, false); err != nil {
		return err
	}

	if deleted {
		s.logger.InfoContext(ctx, "credential removed", "user_id", userID)
	}
	return nil
}

// Status reports connection state without decrypting token material. A user
// whose token is expired still counts as connected here; the refresh on the
// next GetValid decides whether the credential is actually dead.
func (s *Store) Status(ctx context.Context, userID string) (*ConnectionStatus, error) {
	row, err := s.repo.Get(ctx, userID)
	if err != nil {
		if types.IsCode(err, types.ErrCodeNotConnected) {
			return &ConnectionStatus{UserID: userID, Connected: false}, nil
		}
		return nil, err
	}
	return &ConnectionStatus{
		UserID:    userID,
		Connected: true,
		Expiry:    row.Expiry,
		Scopes:    row.Scopes,
	}, nil
}

// decrypt turns a stored row back into a usable credential.
func (s *Store) decrypt(row *db.CredentialRow) (*types.Credential, error) {
	access, err := s.cipher.Decrypt(row.AccessTokenEncrypted)
	if err != nil {
		return nil, err
	}
	refresh, err := s.cipher.Decrypt(row.RefreshTokenEncrypted)
	if err != nil {
		return nil, err
	}
	return &types.Credential{
		UserID:       row.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       row.Expiry,
		Scopes:       row.Scopes,
	}, nil
}
