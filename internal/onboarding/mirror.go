package onboarding

import (
	"context"
	"log/slog"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

// mirrorStore is the persistence surface mirror maintenance needs.
type mirrorStore interface {
	Get(ctx context.Context, id string) (*types.Appointment, error)
	UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error
	SetStatus(ctx context.Context, id string, status types.AppointmentStatus) error
}

// clientGetter resolves the client for provider event payloads.
type clientGetter interface {
	Get(ctx context.Context, id string) (*types.Client, error)
}

// credentialSource serves usable credentials for the appointment's owner.
type credentialSource interface {
	GetValid(ctx context.Context, userID string) (*types.Credential, error)
}

// Mirror keeps already-mirrored appointments consistent with their external
// events: a reschedule patches the event, a cancellation removes it. Local
// state is always written first; provider propagation is best effort and a
// propagation failure never rolls the local change back.
type Mirror struct {
	appointments mirrorStore
	clients      clientGetter
	credentials  credentialSource
	provider     external.CalendarClient
	logger       *slog.Logger
}

// NewMirror creates a Mirror.
func NewMirror(appointments mirrorStore, clients clientGetter, credentials credentialSource, provider external.CalendarClient, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		appointments: appointments,
		clients:      clients,
		credentials:  credentials,
		provider:     provider,
		logger:       logger,
	}
}

// Reschedule moves a pending appointment to a new time. The status stays
// pending; if the appointment is mirrored, the external event is patched to
// the new time.
func (m *Mirror) Reschedule(ctx context.Context, id string, newTime time.Time) (*types.Appointment, error) {
	appt, err := m.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := m.appointments.UpdateScheduledAt(ctx, id, newTime); err != nil {
		return nil, err
	}
	appt.ScheduledAt = newTime

	if appt.Mirrored() {
		m.propagateUpdate(ctx, appt)
	}
	return appt, nil
}

// Cancel transitions an appointment to canceled and removes its external
// event if it has one.
func (m *Mirror) Cancel(ctx context.Context, id string) error {
	appt, err := m.appointments.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := m.appointments.SetStatus(ctx, id, types.StatusCanceled); err != nil {
		return err
	}

	if appt.Mirrored() {
		m.propagateCancel(ctx, appt)
	}
	return nil
}

// propagateUpdate patches the provider event with the appointment's current
// data. Failures are logged only; the event id stays in place and the
// calendar self-corrects on the next manual intervention.
func (m *Mirror) propagateUpdate(ctx context.Context, appt *types.Appointment) {
	cred, err := m.credentials.GetValid(ctx, appt.OwnerID)
	if err != nil {
		m.logger.WarnContext(ctx, "cannot propagate reschedule; owner credential unavailable",
			"appointment_id", appt.ID,
			"owner_id", appt.OwnerID,
			"error", err,
		)
		return
	}

	client, err := m.clients.Get(ctx, appt.ClientID)
	if err != nil {
		m.logger.WarnContext(ctx, "cannot propagate reschedule; client lookup failed",
			"appointment_id", appt.ID,
			"client_id", appt.ClientID,
			"error", err,
		)
		return
	}

	if err := m.provider.UpdateEvent(ctx, cred, *appt.ExternalEventID, appt, client); err != nil {
		m.logger.WarnContext(ctx, "updating external event failed",
			"appointment_id", appt.ID,
			"event_id", *appt.ExternalEventID,
			"error", err,
		)
		return
	}

	m.logger.InfoContext(ctx, "external event rescheduled",
		"appointment_id", appt.ID,
		"event_id", *appt.ExternalEventID,
	)
}

// propagateCancel removes the provider event.
func (m *Mirror) propagateCancel(ctx context.Context, appt *types.Appointment) {
	cred, err := m.credentials.GetValid(ctx, appt.OwnerID)
	if err != nil {
		m.logger.WarnContext(ctx, "cannot propagate cancellation; owner credential unavailable",
			"appointment_id", appt.ID,
			"owner_id", appt.OwnerID,
			"error", err,
		)
		return
	}

	if err := m.provider.CancelEvent(ctx, cred, *appt.ExternalEventID); err != nil {
		m.logger.WarnContext(ctx, "canceling external event failed",
			"appointment_id", appt.ID,
			"event_id", *appt.ExternalEventID,
			"error", err,
		)
		return
	}

	m.logger.InfoContext(ctx, "external event canceled",
		"appointment_id", appt.ID,
		"event_id", *appt.ExternalEventID,
	)
}
