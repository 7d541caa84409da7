package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// AppointmentRepository provides data access for the appointments table.
type AppointmentRepository struct {
	db DBTX
}

// NewAppointmentRepository creates an AppointmentRepository backed by the
// given connection (pool or transaction).
func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, kind, client_id, owner_id, scheduled_at, status,
	title, description, location, meeting_link, notes,
	external_event_id, external_calendar_id, created_at, updated_at`

// Create inserts a new appointment row.
func (r *AppointmentRepository) Create(ctx context.Context, a *types.Appointment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO appointments
		   (id, kind, client_id, owner_id, scheduled_at, status,
		    title, description, location, meeting_link, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, string(a.Kind), a.ClientID, a.OwnerID, a.ScheduledAt, string(a.Status),
		a.Title, a.Description, a.Location, a.MeetingLink, a.Notes,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting appointment", err)
	}
	return nil
}

// Get loads a single appointment by id.
func (r *AppointmentRepository) Get(ctx context.Context, id string) (*types.Appointment, error) {
	rowAppt, err := scanAppointment(r.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", err)
		}
		return nil, err
	}
	return rowAppt, nil
}

// ListPendingByClient returns all pending appointments for a client, oldest
// scheduled first. The lifecycle engine uses this for idempotent generation
// and for reconciliation after client edits.
func (r *AppointmentRepository) ListPendingByClient(ctx context.Context, clientID string) ([]*types.Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE client_id = $1 AND status = $2
		 ORDER BY scheduled_at ASC`,
		clientID, string(types.StatusPending),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing pending appointments", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// OldestPendingByKind returns the single oldest pending appointment of the
// given kind for the client, or nil if none exists.
func (r *AppointmentRepository) OldestPendingByKind(ctx context.Context, clientID string, kind types.AppointmentKind) (*types.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE client_id = $1 AND kind = $2 AND status = $3
		 ORDER BY scheduled_at ASC
		 LIMIT 1`,
		clientID, string(kind), string(types.StatusPending),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListSyncCandidates returns appointments eligible for external mirroring:
// pending, not yet mirrored, and scheduled strictly after now but within the
// horizon. Already-past pending appointments are excluded; sync covers
// upcoming work, not backlog cleanup.
func (r *AppointmentRepository) ListSyncCandidates(ctx context.Context, now time.Time, horizon time.Duration) ([]*types.Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE status = $1
		   AND external_event_id IS NULL
		   AND scheduled_at > $2
		   AND scheduled_at <= $3
		 ORDER BY scheduled_at ASC`,
		string(types.StatusPending), now, now.Add(horizon),
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing sync candidates", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListPendingInWindow returns pending appointments scheduled inside
// [from, to), regardless of mirroring state. The reminder job uses this with
// the bounds of the current local calendar day.
func (r *AppointmentRepository) ListPendingInWindow(ctx context.Context, from, to time.Time) ([]*types.Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+appointmentColumns+`
		 FROM appointments
		 WHERE status = $1
		   AND scheduled_at >= $2
		   AND scheduled_at < $3
		 ORDER BY scheduled_at ASC`,
		string(types.StatusPending), from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing pending appointments in window", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// SetStatus transitions an appointment to the given status.
func (r *AppointmentRepository) SetStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", nil)
	}
	return nil
}

// UpdateScheduledAt moves an appointment to a new timestamp. Status is left
// untouched; rescheduling to a terminal state is an explicit SetStatus call.
func (r *AppointmentRepository) UpdateScheduledAt(ctx context.Context, id string, scheduledAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET scheduled_at = $2, updated_at = NOW() WHERE id = $1`,
		id, scheduledAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating appointment schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAppointment, "appointment not found", nil)
	}
	return nil
}

// SetExternalEvent persists the provider event reference. The WHERE clause
// makes the column write-once: if the appointment already carries an event id
// the update matches zero rows and a conflict error is returned. This is the
// idempotency guard against duplicate external creation.
func (r *AppointmentRepository) SetExternalEvent(ctx context.Context, id, eventID, calendarID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments
		 SET external_event_id = $2, external_calendar_id = $3, updated_at = NOW()
		 WHERE id = $1 AND external_event_id IS NULL`,
		id, eventID, calendarID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "persisting external event reference", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictMirrored,
			fmt.Sprintf("appointment %s already mirrored or missing", id), nil)
	}
	return nil
}

// collectAppointments drains rows into a slice, validating enums per row.
func collectAppointments(rows pgx.Rows) ([]*types.Appointment, error) {
	var out []*types.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating appointment rows", err)
	}
	return out, nil
}

// scanAppointment maps one row onto an Appointment. Kind and status strings
// are parsed through the closed enum constructors; unknown values fail here.
func scanAppointment(row pgx.Row) (*types.Appointment, error) {
	var (
		a            types.Appointment
		kindRaw      string
		statusRaw    string
		description  *string
		location     *string
		meetingLink  *string
		notes        *string
	)
	err := row.Scan(
		&a.ID, &kindRaw, &a.ClientID, &a.OwnerID, &a.ScheduledAt, &statusRaw,
		&a.Title, &description, &location, &meetingLink, &notes,
		&a.ExternalEventID, &a.ExternalCalendarID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning appointment row", err)
	}

	kind, err := types.ParseAppointmentKind(kindRaw)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationUnknownEnum, "appointment kind", err)
	}
	status, err := types.ParseAppointmentStatus(statusRaw)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationUnknownEnum, "appointment status", err)
	}
	a.Kind = kind
	a.Status = status

	if description != nil {
		a.Description = *description
	}
	if location != nil {
		a.Location = *location
	}
	if meetingLink != nil {
		a.MeetingLink = *meetingLink
	}
	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}
