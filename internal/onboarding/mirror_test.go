package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

func (f *fakeAppointmentStore) Get(ctx context.Context, id string) (*types.Appointment, error) {
	for _, a := range f.appointments {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", nil)
}

type fakeClientGetter struct {
	clients map[string]*types.Client
}

func (f *fakeClientGetter) Get(ctx context.Context, id string) (*types.Client, error) {
	if c, ok := f.clients[id]; ok {
		return c, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundClient, "client not found", nil)
}

type fakeCredentialSource struct {
	creds map[string]*types.Credential
}

func (f *fakeCredentialSource) GetValid(ctx context.Context, userID string) (*types.Credential, error) {
	if c, ok := f.creds[userID]; ok {
		return c, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotConnected, "no credential stored for user", nil)
}

type fakeCalendar struct {
	updated  []string
	canceled []string
	err      error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, cred *types.Credential, appt *types.Appointment, client *types.Client) (string, string, error) {
	return "evt-new", "primary", nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, cred *types.Credential, eventID string, appt *types.Appointment, client *types.Client) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, eventID)
	return nil
}

func (f *fakeCalendar) CancelEvent(ctx context.Context, cred *types.Credential, eventID string) error {
	if f.err != nil {
		return f.err
	}
	f.canceled = append(f.canceled, eventID)
	return nil
}

func mirrorFixture() (*Mirror, *fakeAppointmentStore, *fakeCalendar) {
	store := &fakeAppointmentStore{}
	clients := &fakeClientGetter{clients: map[string]*types.Client{
		"client-1": {ID: "client-1", Name: "Padaria Central"},
	}}
	creds := &fakeCredentialSource{creds: map[string]*types.Credential{
		"owner-1": {UserID: "owner-1", AccessToken: "token", Expiry: time.Now().Add(time.Hour)},
	}}
	calendar := &fakeCalendar{}
	return NewMirror(store, clients, creds, calendar, nil), store, calendar
}

func mirroredAppointment(id string) *types.Appointment {
	eventID := "evt-" + id
	calendarID := "primary"
	return &types.Appointment{
		ID:                 id,
		Kind:               types.KindD15,
		ClientID:           "client-1",
		OwnerID:            "owner-1",
		ScheduledAt:        time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		Status:             types.StatusPending,
		Title:              "Acompanhamento D+15 - Padaria Central",
		ExternalEventID:    &eventID,
		ExternalCalendarID: &calendarID,
	}
}

func TestReschedule_UpdatesLocalAndPatchesEvent(t *testing.T) {
	mirror, store, calendar := mirrorFixture()
	store.appointments = append(store.appointments, mirroredAppointment("a1"))

	newTime := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	appt, err := mirror.Reschedule(context.Background(), "a1", newTime)
	require.NoError(t, err)

	assert.True(t, appt.ScheduledAt.Equal(newTime))
	assert.True(t, store.appointments[0].ScheduledAt.Equal(newTime))
	assert.Equal(t, []string{"evt-a1"}, calendar.updated)
}

func TestReschedule_UnmirroredSkipsProvider(t *testing.T) {
	mirror, store, calendar := mirrorFixture()
	appt := mirroredAppointment("a1")
	appt.ExternalEventID = nil
	appt.ExternalCalendarID = nil
	store.appointments = append(store.appointments, appt)

	_, err := mirror.Reschedule(context.Background(), "a1", time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, calendar.updated)
}

func TestReschedule_ProviderFailureKeepsLocalChange(t *testing.T) {
	mirror, store, calendar := mirrorFixture()
	store.appointments = append(store.appointments, mirroredAppointment("a1"))
	calendar.err = types.NewAppError(types.ErrCodeUpstreamCalendar, "provider down", nil)

	newTime := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	_, err := mirror.Reschedule(context.Background(), "a1", newTime)
	require.NoError(t, err, "propagation failure must not fail the reschedule")
	assert.True(t, store.appointments[0].ScheduledAt.Equal(newTime))
}

func TestReschedule_NotFound(t *testing.T) {
	mirror, _, _ := mirrorFixture()

	_, err := mirror.Reschedule(context.Background(), "ghost", time.Now())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCodeNotFoundAppointment))
}

func TestCancel_SetsStatusAndRemovesEvent(t *testing.T) {
	mirror, store, calendar := mirrorFixture()
	store.appointments = append(store.appointments, mirroredAppointment("a1"))

	require.NoError(t, mirror.Cancel(context.Background(), "a1"))

	assert.Equal(t, types.StatusCanceled, store.appointments[0].Status)
	assert.Equal(t, []string{"evt-a1"}, calendar.canceled)
}

func TestCancel_DisconnectedOwnerStillCancelsLocally(t *testing.T) {
	mirror, store, calendar := mirrorFixture()
	appt := mirroredAppointment("a1")
	appt.OwnerID = "owner-disconnected"
	store.appointments = append(store.appointments, appt)

	require.NoError(t, mirror.Cancel(context.Background(), "a1"))

	assert.Equal(t, types.StatusCanceled, store.appointments[0].Status)
	assert.Empty(t, calendar.canceled)
}
