// Package types defines the shared domain model for the onboarding platform:
// entities, closed enumerations, the application error taxonomy, and small
// cross-cutting interfaces (Clock, SecretString).
package types

import (
	"time"
)

// User is a member of the onboarding team. A user owns zero or one external
// Credential; GoogleConnected mirrors whether that credential exists.
type User struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Role            string    `json:"role" db:"role"`
	GoogleConnected bool      `json:"google_connected" db:"google_connected"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CompanyContact is one entry in a client's free-form contact list, stored as
// JSONB on the client row.
type CompanyContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Client is an onboarding client. Mandatory appointments exist iff both
// ContractStart and OwnerID are set.
type Client struct {
	ID                 string             `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	CNPJ               string             `json:"cnpj,omitempty" db:"cnpj"`
	ContractStart      *time.Time         `json:"contract_start,omitempty" db:"contract_start"`
	InitialMeetingDate *time.Time         `json:"initial_meeting_date,omitempty" db:"initial_meeting_date"`
	OnboardingStatus   OnboardingStatus   `json:"onboarding_status" db:"onboarding_status"`
	RelationshipStatus RelationshipStatus `json:"relationship_status" db:"relationship_status"`
	// OwnerID references the user responsible for follow-up. Nullable: a
	// client without an owner has no mandatory appointments.
	OwnerID  *string          `json:"owner_id,omitempty" db:"owner_id"`
	Contacts []CompanyContact `json:"contacts,omitempty" db:"contacts"`
	Notes    string           `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PrimaryEmail returns the first contact with a non-empty email address, or
// "" if the client has no resolvable notification address.
func (c *Client) PrimaryEmail() string {
	for _, ct := range c.Contacts {
		if ct.Email != "" {
			return ct.Email
		}
	}
	return ""
}

// Appointment is a scheduled check-in with a client. ExternalEventID is the
// idempotency guard for external mirroring: it is written at most once, only
// after a confirmed create on the provider, and an appointment carrying one
// is never selected for sync again.
type Appointment struct {
	ID          string            `json:"id" db:"id"`
	Kind        AppointmentKind   `json:"kind" db:"kind"`
	ClientID    string            `json:"client_id" db:"client_id"`
	OwnerID     string            `json:"owner_id" db:"owner_id"`
	ScheduledAt time.Time         `json:"scheduled_at" db:"scheduled_at"`
	Status      AppointmentStatus `json:"status" db:"status"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description,omitempty" db:"description"`
	Location    string            `json:"location,omitempty" db:"location"`
	MeetingLink string            `json:"meeting_link,omitempty" db:"meeting_link"`
	Notes       string            `json:"notes,omitempty" db:"notes"`

	ExternalEventID    *string `json:"external_event_id,omitempty" db:"external_event_id"`
	ExternalCalendarID *string `json:"external_calendar_id,omitempty" db:"external_calendar_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Mirrored reports whether the appointment already has an external event.
func (a *Appointment) Mirrored() bool {
	return a.ExternalEventID != nil && *a.ExternalEventID != ""
}

// Interaction is a logged contact with a client. Creating one of a mapped
// kind completes the oldest pending appointment of the matching kind.
type Interaction struct {
	ID          string             `json:"id" db:"id"`
	ClientID    string             `json:"client_id" db:"client_id"`
	Kind        InteractionKind    `json:"kind" db:"kind"`
	Date        time.Time          `json:"date" db:"date"`
	Channel     InteractionChannel `json:"channel" db:"channel"`
	Description string             `json:"description" db:"description"`
	Notes       string             `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// Credential is the decrypted, in-memory form of a user's external provider
// credential. Secrets are SecretString so they cannot leak through logging or
// serialization; only the credential store and the external client ever
// unmask them. The persisted form (ciphertext columns) lives in the db layer.
type Credential struct {
	UserID       string       `json:"user_id"`
	AccessToken  SecretString `json:"access_token"`
	RefreshToken SecretString `json:"refresh_token"`
	Expiry       time.Time    `json:"expiry"`
	Scopes       []string     `json:"scopes"`
}

// Expired reports whether the access token has passed its expiry at the
// given instant.
func (c *Credential) Expired(now time.Time) bool {
	return !c.Expiry.After(now)
}
