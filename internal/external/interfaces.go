package external

import (
	"context"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// CalendarClient abstracts event operations on the external calendar
// provider. Implementations translate between domain types and the vendor
// API; callers never see provider payloads.
type CalendarClient interface {
	// CreateEvent mirrors an appointment into the user's calendar and
	// returns the provider event id and the calendar it was created on.
	CreateEvent(ctx context.Context, cred *types.Credential, appt *types.Appointment, client *types.Client) (eventID, calendarID string, err error)

	// UpdateEvent pushes the appointment's current data onto an existing
	// provider event.
	UpdateEvent(ctx context.Context, cred *types.Credential, eventID string, appt *types.Appointment, client *types.Client) error

	// CancelEvent removes the provider event.
	CancelEvent(ctx context.Context, cred *types.Credential, eventID string) error
}

// MailClient abstracts notification mail delivery through the provider.
type MailClient interface {
	// SendNotification sends an HTML mail from the credential owner's
	// account to the given recipient.
	SendNotification(ctx context.Context, cred *types.Credential, recipient, subject, htmlBody string) error
}

// TokenClient abstracts the credential refresh exchange.
type TokenClient interface {
	// RefreshCredential trades a refresh secret for a new access secret and
	// expiry. A revoked or invalid refresh secret returns an error with code
	// credential_refresh_failed.
	RefreshCredential(ctx context.Context, refreshToken types.SecretString) (access types.SecretString, expiry time.Time, err error)
}

// AuthorizationFlow abstracts the OAuth consent exchange. The HTTP layer
// redirects to BeginAuthorization's URL and hands the returned code to
// CompleteAuthorization.
type AuthorizationFlow interface {
	// BeginAuthorization builds the provider consent URL for the user. The
	// user id travels in the state parameter and comes back on the callback.
	BeginAuthorization(userID string) string

	// CompleteAuthorization exchanges the authorization code for credential
	// material. The result carries plaintext secrets; the caller must hand
	// it straight to the credential store.
	CompleteAuthorization(ctx context.Context, code, userID string) (*types.Credential, error)
}

// SyncClient is the full provider surface the jobs depend on.
type SyncClient interface {
	CalendarClient
	MailClient
}
