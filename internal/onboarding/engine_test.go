package onboarding

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// fakeAppointmentStore keeps appointments in memory.
type fakeAppointmentStore struct {
	appointments []*types.Appointment
	createErr    error
}

func (f *fakeAppointmentStore) Create(ctx context.Context, a *types.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *a
	f.appointments = append(f.appointments, &copied)
	return nil
}

func (f *fakeAppointmentStore) ListPendingByClient(ctx context.Context, clientID string) ([]*types.Appointment, error) {
	var out []*types.Appointment
	for _, a := range f.appointments {
		if a.ClientID == clientID && a.Status == types.StatusPending {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (f *fakeAppointmentStore) OldestPendingByKind(ctx context.Context, clientID string, kind types.AppointmentKind) (*types.Appointment, error) {
	var oldest *types.Appointment
	for _, a := range f.appointments {
		if a.ClientID != clientID || a.Kind != kind || a.Status != types.StatusPending {
			continue
		}
		if oldest == nil || a.ScheduledAt.Before(oldest.ScheduledAt) {
			oldest = a
		}
	}
	return oldest, nil
}

func (f *fakeAppointmentStore) UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error {
	for _, a := range f.appointments {
		if a.ID == id {
			a.ScheduledAt = scheduledAt
			return nil
		}
	}
	return types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", nil)
}

func (f *fakeAppointmentStore) SetStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	for _, a := range f.appointments {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", nil)
}

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func onboardingClient(contractStart time.Time) *types.Client {
	owner := "owner-1"
	return &types.Client{
		ID:            "client-1",
		Name:          "Padaria Central",
		ContractStart: &contractStart,
		OwnerID:       &owner,
	}
}

func TestGenerateMandatoryAppointments_FixedSequence(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	created, err := engine.GenerateMandatoryAppointments(context.Background(), onboardingClient(start))
	require.NoError(t, err)
	require.Len(t, created, 5)

	wantDates := []time.Time{
		time.Date(2024, 1, 30, 14, 0, 0, 0, loc),
		time.Date(2024, 3, 5, 14, 0, 0, 0, loc),
		time.Date(2024, 4, 4, 14, 0, 0, 0, loc),
		time.Date(2024, 4, 24, 14, 0, 0, 0, loc),
		time.Date(2024, 7, 13, 14, 0, 0, 0, loc),
	}
	wantKinds := []types.AppointmentKind{
		types.KindD15, types.KindD50,
		types.KindFollowUp, types.KindFollowUp, types.KindFollowUp,
	}

	for i, a := range created {
		assert.True(t, a.ScheduledAt.Equal(wantDates[i]), "appointment %d: got %v, want %v", i, a.ScheduledAt, wantDates[i])
		assert.Equal(t, wantKinds[i], a.Kind)
		assert.Equal(t, types.StatusPending, a.Status)
		assert.Equal(t, "owner-1", a.OwnerID)
		assert.NotEmpty(t, a.ID)
	}

	assert.Equal(t, "Acompanhamento D+15 - Padaria Central", created[0].Title)
	assert.Equal(t, "Acompanhamento D+50 - Padaria Central", created[1].Title)
	assert.Equal(t, "Acompanhamento D+180 - Padaria Central", created[4].Title)
}

func TestGenerateMandatoryAppointments_NoContractStart(t *testing.T) {
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, time.UTC, nil)

	client := onboardingClient(time.Now())
	client.ContractStart = nil

	created, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, store.appointments)
}

func TestGenerateMandatoryAppointments_NoOwner(t *testing.T) {
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, time.UTC, nil)

	client := onboardingClient(time.Now())
	client.OwnerID = nil

	created, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestGenerateMandatoryAppointments_Idempotent(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))

	first, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, first, 5)

	second, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, second, "second invocation must create nothing")
	assert.Len(t, store.appointments, 5)
}

func TestReconcile_GeneratesWhenNoneExist(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	require.NoError(t, engine.ReconcileOnClientChange(context.Background(), client))
	assert.Len(t, store.appointments, 5)
}

func TestReconcile_RecomputesPendingDates(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	_, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)

	newStart := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)
	client.ContractStart = &newStart
	require.NoError(t, engine.ReconcileOnClientChange(context.Background(), client))

	byKind := map[types.AppointmentKind][]time.Time{}
	for _, a := range store.appointments {
		byKind[a.Kind] = append(byKind[a.Kind], a.ScheduledAt)
	}

	assert.True(t, byKind[types.KindD15][0].Equal(time.Date(2024, 2, 16, 14, 0, 0, 0, loc)))
	assert.True(t, byKind[types.KindD50][0].Equal(time.Date(2024, 3, 22, 14, 0, 0, 0, loc)))
	// Pending follow-ups all land on the first follow-up offset.
	for _, at := range byKind[types.KindFollowUp] {
		assert.True(t, at.Equal(time.Date(2024, 4, 21, 14, 0, 0, 0, loc)), "follow-up moved to %v", at)
	}
}

func TestReconcile_PreservesTimeOfDay(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	created, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)

	// The D15 check-in was manually moved to a morning slot.
	movedTo := time.Date(2024, 1, 30, 10, 0, 0, 0, loc)
	require.NoError(t, store.UpdateScheduledAt(context.Background(), created[0].ID, movedTo))

	newStart := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)
	client.ContractStart = &newStart
	require.NoError(t, engine.ReconcileOnClientChange(context.Background(), client))

	for _, a := range store.appointments {
		if a.ID == created[0].ID {
			want := time.Date(2024, 2, 16, 10, 0, 0, 0, loc)
			assert.True(t, a.ScheduledAt.Equal(want), "date moves with the contract but the chosen time stays, got %v", a.ScheduledAt)
		}
	}
}

func TestReconcile_LeavesCompletedUntouched(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	created, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)

	completedAt := created[0].ScheduledAt
	require.NoError(t, store.SetStatus(context.Background(), created[0].ID, types.StatusCompleted))

	newStart := time.Date(2024, 2, 1, 0, 0, 0, 0, loc)
	client.ContractStart = &newStart
	require.NoError(t, engine.ReconcileOnClientChange(context.Background(), client))

	for _, a := range store.appointments {
		if a.ID == created[0].ID {
			assert.True(t, a.ScheduledAt.Equal(completedAt), "completed appointment must not move")
		}
	}
}

func TestCompleteMatchingAppointment_CompletesOldest(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	created, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)

	require.NoError(t, engine.CompleteMatchingAppointment(context.Background(), "client-1", types.InteractionD15))

	completed := 0
	for _, a := range store.appointments {
		if a.Status == types.StatusCompleted {
			completed++
			assert.Equal(t, created[0].ID, a.ID, "only the D15 appointment completes")
		}
	}
	assert.Equal(t, 1, completed)
}

func TestCompleteMatchingAppointment_OldestFollowUpWins(t *testing.T) {
	loc := saoPaulo(t)
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, loc, nil)

	client := onboardingClient(time.Date(2024, 1, 15, 0, 0, 0, 0, loc))
	_, err := engine.GenerateMandatoryAppointments(context.Background(), client)
	require.NoError(t, err)

	require.NoError(t, engine.CompleteMatchingAppointment(context.Background(), "client-1", types.InteractionFollowUp))

	var followUps []*types.Appointment
	for _, a := range store.appointments {
		if a.Kind == types.KindFollowUp {
			followUps = append(followUps, a)
		}
	}
	sort.Slice(followUps, func(i, j int) bool { return followUps[i].ScheduledAt.Before(followUps[j].ScheduledAt) })

	assert.Equal(t, types.StatusCompleted, followUps[0].Status, "oldest follow-up completes")
	assert.Equal(t, types.StatusPending, followUps[1].Status)
	assert.Equal(t, types.StatusPending, followUps[2].Status)
}

func TestCompleteMatchingAppointment_UnmappedKindIsNoop(t *testing.T) {
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, time.UTC, nil)

	err := engine.CompleteMatchingAppointment(context.Background(), "client-1", types.InteractionSupport)
	require.NoError(t, err)
}

func TestCompleteMatchingAppointment_NoPendingMatchIsNoop(t *testing.T) {
	store := &fakeAppointmentStore{}
	engine := NewEngine(store, time.UTC, nil)

	err := engine.CompleteMatchingAppointment(context.Background(), "client-1", types.InteractionD15)
	require.NoError(t, err)
}
