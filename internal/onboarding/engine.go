// Package onboarding holds the rule engine that derives and maintains the
// mandatory check-in schedule from a client's contract timeline.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// mandatoryOffset is one entry of the fixed check-in sequence.
type mandatoryOffset struct {
	Days int
	Kind types.AppointmentKind
}

// mandatoryOffsets is the fixed sequence of check-ins every onboarding
// client goes through, counted in days from contract start.
var mandatoryOffsets = []mandatoryOffset{
	{15, types.KindD15},
	{50, types.KindD50},
	{80, types.KindFollowUp},
	{100, types.KindFollowUp},
	{180, types.KindFollowUp},
}

// reconcileOffsetDays maps a pending appointment's kind back to the offset
// used when recomputing dates after a contract-start change. Follow-ups all
// collapse onto the first follow-up offset; their original +100/+180
// placement is not recoverable from the kind alone.
var reconcileOffsetDays = map[types.AppointmentKind]int{
	types.KindD15:      15,
	types.KindD50:      50,
	types.KindFollowUp: 80,
}

// interactionCompletes maps a logged interaction kind to the appointment
// kind it completes. Kinds missing here (support) complete nothing.
var interactionCompletes = map[types.InteractionKind]types.AppointmentKind{
	types.InteractionInitialMeeting: types.KindInitialMeeting,
	types.InteractionD15:            types.KindD15,
	types.InteractionD50:            types.KindD50,
	types.InteractionFollowUp:       types.KindFollowUp,
}

// appointmentStore is the persistence surface the engine needs.
type appointmentStore interface {
	Create(ctx context.Context, a *types.Appointment) error
	ListPendingByClient(ctx context.Context, clientID string) ([]*types.Appointment, error)
	OldestPendingByKind(ctx context.Context, clientID string, kind types.AppointmentKind) (*types.Appointment, error)
	UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error
	SetStatus(ctx context.Context, id string, status types.AppointmentStatus) error
}

// Engine derives mandatory appointments from contract dates and keeps them
// consistent as clients change. It owns no schedule of its own; the sync and
// reminder jobs rely on the state it maintains.
type Engine struct {
	appointments appointmentStore
	location     *time.Location
	logger       *slog.Logger
}

// NewEngine creates an Engine. Appointment times are placed in loc.
func NewEngine(appointments appointmentStore, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{appointments: appointments, location: loc, logger: logger}
}

// GenerateMandatoryAppointments creates the fixed check-in sequence for a
// client: five pending appointments at contract start +15/+50/+80/+100/+180
// days, each at 14:00 local time. A client without a contract start or owner
// gets nothing. Re-invoking for a client whose mandatory appointments are
// still pending creates no duplicates.
func (e *Engine) GenerateMandatoryAppointments(ctx context.Context, client *types.Client) ([]*types.Appointment, error) {
	if client.ContractStart == nil || client.OwnerID == nil {
		return nil, nil
	}

	existing, err := e.appointments.ListPendingByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	existingKinds := make(map[types.AppointmentKind]bool, len(existing))
	for _, a := range existing {
		existingKinds[a.Kind] = true
	}

	var created []*types.Appointment
	for _, off := range mandatoryOffsets {
		if existingKinds[off.Kind] {
			continue
		}

		appt := &types.Appointment{
			ID:          uuid.NewString(),
			Kind:        off.Kind,
			ClientID:    client.ID,
			OwnerID:     *client.OwnerID,
			ScheduledAt: e.appointmentTime(*client.ContractStart, off.Days),
			Status:      types.StatusPending,
			Title:       mandatoryTitle(off.Days, client.Name),
		}
		if err := e.appointments.Create(ctx, appt); err != nil {
			return created, err
		}
		created = append(created, appt)
	}

	e.logger.InfoContext(ctx, "mandatory appointments generated",
		"client_id", client.ID,
		"created", len(created),
		"skipped_existing", len(mandatoryOffsets)-len(created),
	)
	return created, nil
}

// ReconcileOnClientChange re-derives the mandatory schedule after a client's
// contract start or owner changed. Missing appointments are generated;
// pending mandatory appointments get their dates recomputed from the new
// contract start. Completed, canceled and rescheduled appointments are left
// untouched, as are kinds outside the mandatory sequence.
func (e *Engine) ReconcileOnClientChange(ctx context.Context, client *types.Client) error {
	if client.ContractStart == nil || client.OwnerID == nil {
		return nil
	}

	pending, err := e.appointments.ListPendingByClient(ctx, client.ID)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		_, err := e.GenerateMandatoryAppointments(ctx, client)
		return err
	}

	recomputed := 0
	for _, a := range pending {
		days, ok := reconcileOffsetDays[a.Kind]
		if !ok {
			continue
		}
		newAt := e.reconcileTime(*client.ContractStart, days, a.ScheduledAt)
		if newAt.Equal(a.ScheduledAt) {
			continue
		}
		if err := e.appointments.UpdateScheduledAt(ctx, a.ID, newAt); err != nil {
			return err
		}
		recomputed++
	}

	e.logger.InfoContext(ctx, "mandatory appointments reconciled",
		"client_id", client.ID,
		"recomputed", recomputed,
	)
	return nil
}

// CompleteMatchingAppointment transitions the oldest pending appointment of
// the kind matching the interaction to completed. Unmapped interaction kinds
// and clients with no matching pending appointment are no-ops.
func (e *Engine) CompleteMatchingAppointment(ctx context.Context, clientID string, kind types.InteractionKind) error {
	apptKind, ok := interactionCompletes[kind]
	if !ok {
		return nil
	}

	appt, err := e.appointments.OldestPendingByKind(ctx, clientID, apptKind)
	if err != nil {
		return err
	}
	if appt == nil {
		return nil
	}

	if err := e.appointments.SetStatus(ctx, appt.ID, types.StatusCompleted); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "appointment completed by interaction",
		"client_id", clientID,
		"appointment_id", appt.ID,
		"kind", apptKind,
	)
	return nil
}

// appointmentTime places a mandatory check-in at 14:00 local time, the given
// number of days after contract start.
func (e *Engine) appointmentTime(contractStart time.Time, days int) time.Time {
	base := contractStart.In(e.location)
	return time.Date(base.Year(), base.Month(), base.Day()+days, 14, 0, 0, 0, e.location)
}

// reconcileTime moves an existing appointment's date to the new offset while
// keeping the time of day it already carries, so a manually chosen time
// survives a contract-start change.
func (e *Engine) reconcileTime(contractStart time.Time, days int, current time.Time) time.Time {
	base := contractStart.In(e.location)
	at := current.In(e.location)
	return time.Date(base.Year(), base.Month(), base.Day()+days, at.Hour(), at.Minute(), at.Second(), 0, e.location)
}

// mandatoryTitle builds the deterministic check-in title shown to users and
// mirrored into the external calendar.
func mandatoryTitle(days int, clientName string) string {
	return fmt.Sprintf("Acompanhamento D+%d - %s", days, clientName)
}
