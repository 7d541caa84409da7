package types

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestParseAppointmentKind(t *testing.T) {
	valid := []string{"initial_meeting", "d15", "d50", "followup", "technical_visit", "custom"}
	for _, s := range valid {
		if _, err := ParseAppointmentKind(s); err != nil {
			t.Errorf("ParseAppointmentKind(%q) unexpected error: %v", s, err)
		}
	}

	for _, s := range []string{"", "D15", "FOLLOWUP", "meeting", "pending"} {
		if _, err := ParseAppointmentKind(s); err == nil {
			t.Errorf("ParseAppointmentKind(%q) expected error, got nil", s)
		}
	}
}

func TestParseAppointmentStatus(t *testing.T) {
	for _, s := range []string{"pending", "completed", "canceled", "rescheduled"} {
		if _, err := ParseAppointmentStatus(s); err != nil {
			t.Errorf("ParseAppointmentStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseAppointmentStatus("PENDENTE"); err == nil {
		t.Error("expected legacy uppercase status to be rejected")
	}
}

func TestParseInteractionKind_SupportIsValid(t *testing.T) {
	k, err := ParseInteractionKind("support")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != InteractionSupport {
		t.Errorf("got %q, want %q", k, InteractionSupport)
	}
}

func TestParseOnboardingStatus(t *testing.T) {
	for _, s := range []string{"started", "meeting_booked", "documentation", "review", "done"} {
		if _, err := ParseOnboardingStatus(s); err != nil {
			t.Errorf("ParseOnboardingStatus(%q) unexpected error: %v", s, err)
		}
	}
	for _, s := range []string{"", "DONE", "finished", "pending"} {
		if _, err := ParseOnboardingStatus(s); err == nil {
			t.Errorf("ParseOnboardingStatus(%q) expected error, got nil", s)
		}
	}
}

func TestParseRelationshipStatus(t *testing.T) {
	for _, s := range []string{"active", "inactive", "pending", "closed"} {
		if _, err := ParseRelationshipStatus(s); err != nil {
			t.Errorf("ParseRelationshipStatus(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseRelationshipStatus("churned"); err == nil {
		t.Error("expected unknown relationship status to be rejected")
	}
}

func TestClientPrimaryEmail(t *testing.T) {
	c := &Client{Contacts: []CompanyContact{
		{Name: "No Mail"},
		{Name: "Second", Email: "second@acme.example"},
		{Name: "Third", Email: "third@acme.example"},
	}}
	if got := c.PrimaryEmail(); got != "second@acme.example" {
		t.Errorf("PrimaryEmail() = %q, want first contact with an address", got)
	}

	empty := &Client{}
	if got := empty.PrimaryEmail(); got != "" {
		t.Errorf("PrimaryEmail() on contactless client = %q, want empty", got)
	}
}

func TestAppointmentMirrored(t *testing.T) {
	a := &Appointment{}
	if a.Mirrored() {
		t.Error("appointment without event id reported mirrored")
	}
	id := "evt_123"
	a.ExternalEventID = &id
	if !a.Mirrored() {
		t.Error("appointment with event id not reported mirrored")
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Credential{Expiry: now.Add(time.Minute)}
	if c.Expired(now) {
		t.Error("credential expiring in the future reported expired")
	}
	c.Expiry = now.Add(-time.Minute)
	if !c.Expired(now) {
		t.Error("credential past expiry not reported expired")
	}
	c.Expiry = now
	if !c.Expired(now) {
		t.Error("credential expiring exactly now should count as expired")
	}
}

func TestSecretStringRedaction(t *testing.T) {
	s := SecretString("super-secret-token")

	if out := fmt.Sprintf("%v %s", s, s); out != "***REDACTED*** ***REDACTED***" {
		t.Errorf("fmt leaked secret: %q", out)
	}

	b, err := json.Marshal(struct {
		Token SecretString `json:"token"`
	}{Token: s})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"token":"***REDACTED***"}` {
		t.Errorf("json leaked secret: %s", b)
	}

	if s.Unmask() != "super-secret-token" {
		t.Error("Unmask did not return the raw value")
	}
}

func TestAppErrorCodeMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeValidationMissingField: 400,
		ErrCodeNotConnected:           404,
		ErrCodeRefreshFailed:          400,
		ErrCodeNotFoundJob:            404,
		ErrCodeConflictMirrored:       409,
		ErrCodeUpstreamCalendar:       502,
		ErrCodeUpstreamRateLimited:    429,
		ErrCodeInternalDB:             500,
		ErrCodeDataInconsistency:      500,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: got %d, want %d", code, got, want)
		}
	}
}

func TestIsCodeUnwrapsChain(t *testing.T) {
	inner := NewAppError(ErrCodeNotConnected, "user has no credential", nil)
	wrapped := fmt.Errorf("processing appointment abc: %w", inner)

	if !IsCode(wrapped, ErrCodeNotConnected) {
		t.Error("IsCode failed to find wrapped AppError")
	}
	if IsCode(wrapped, ErrCodeInternalDB) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeNotConnected) {
		t.Error("IsCode matched a non-AppError")
	}
}
