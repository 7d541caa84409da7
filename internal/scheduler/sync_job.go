package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

// SyncHorizon is how far ahead the sync job looks for appointments to
// mirror. Past-dated pending appointments are never candidates.
const SyncHorizon = 30 * 24 * time.Hour

// syncAppointmentStore is the persistence surface the sync job needs.
type syncAppointmentStore interface {
	ListSyncCandidates(ctx context.Context, now time.Time, horizon time.Duration) ([]*types.Appointment, error)
	SetExternalEvent(ctx context.Context, id, eventID, calendarID string) error
}

// clientReader resolves the client an appointment belongs to.
type clientReader interface {
	Get(ctx context.Context, id string) (*types.Client, error)
}

// credentialSource serves usable credentials for a user, refreshing expired
// ones behind the call.
type credentialSource interface {
	GetValid(ctx context.Context, userID string) (*types.Credential, error)
}

// SyncJob mirrors upcoming pending appointments into the external calendar.
// Each run selects appointments with no external event reference scheduled
// within the horizon and processes them independently: one item's failure
// never aborts the batch. The persisted event id is the idempotency guard;
// a mirrored appointment is never selected again.
type SyncJob struct {
	appointments syncAppointmentStore
	clients      clientReader
	credentials  credentialSource
	provider     external.SyncClient
	clock        types.Clock
	logger       *slog.Logger
}

// NewSyncJob creates a SyncJob.
func NewSyncJob(appointments syncAppointmentStore, clients clientReader, credentials credentialSource, provider external.SyncClient, clock types.Clock, logger *slog.Logger) *SyncJob {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJob{
		appointments: appointments,
		clients:      clients,
		credentials:  credentials,
		provider:     provider,
		clock:        clock,
		logger:       logger,
	}
}

func (j *SyncJob) ID() JobID    { return JobSyncAppointments }
func (j *SyncJob) Name() string { return "Sincronização de agendamentos" }

// Run executes one sync batch. Only a failure to list candidates aborts the
// run; everything after that is contained per item.
func (j *SyncJob) Run(ctx context.Context) error {
	now := j.clock.Now()

	candidates, err := j.appointments.ListSyncCandidates(ctx, now, SyncHorizon)
	if err != nil {
		return err
	}

	var synced, skipped, failed int
	for _, appt := range candidates {
		switch j.syncOne(ctx, appt) {
		case outcomeSynced:
			synced++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}

	j.logger.InfoContext(ctx, "sync batch finished",
		"candidates", len(candidates),
		"synced", synced,
		"skipped", skipped,
		"failed", failed,
	)
	return nil
}

type itemOutcome int

const (
	outcomeSynced itemOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// syncOne mirrors a single appointment. Returns how the item ended; all
// error detail is logged here with the item's identifier.
func (j *SyncJob) syncOne(ctx context.Context, appt *types.Appointment) itemOutcome {
	client, err := j.clients.Get(ctx, appt.ClientID)
	if err != nil {
		if types.IsCode(err, types.ErrCodeNotFoundClient) {
			j.logger.WarnContext(ctx, "appointment references missing client; skipping",
				"appointment_id", appt.ID,
				"client_id", appt.ClientID,
				"error", types.NewAppError(types.ErrCodeDataInconsistency, "appointment references missing client", err),
			)
			return outcomeSkipped
		}
		j.logger.ErrorContext(ctx, "resolving client failed",
			"appointment_id", appt.ID,
			"error", err,
		)
		return outcomeFailed
	}

	cred, err := j.credentials.GetValid(ctx, appt.OwnerID)
	if err != nil {
		if types.IsCode(err, types.ErrCodeNotConnected) {
			j.logger.InfoContext(ctx, "owner has no usable credential; skipping",
				"appointment_id", appt.ID,
				"owner_id", appt.OwnerID,
			)
			return outcomeSkipped
		}
		j.logger.ErrorContext(ctx, "credential lookup failed",
			"appointment_id", appt.ID,
			"owner_id", appt.OwnerID,
			"error", err,
		)
		return outcomeFailed
	}

	eventID, calendarID, err := j.provider.CreateEvent(ctx, cred, appt, client)
	if err != nil {
		j.logger.ErrorContext(ctx, "creating external event failed",
			"appointment_id", appt.ID,
			"error", err,
		)
		return outcomeFailed
	}

	if err := j.appointments.SetExternalEvent(ctx, appt.ID, eventID, calendarID); err != nil {
		if types.IsCode(err, types.ErrCodeConflictMirrored) {
			// The row gained an event id since selection. The event just
			// created is an orphan on the provider side; log it so it can
			// be cleaned up by hand.
			j.logger.WarnContext(ctx, "appointment already mirrored; created event is orphaned",
				"appointment_id", appt.ID,
				"orphan_event_id", eventID,
			)
			return outcomeSkipped
		}
		j.logger.ErrorContext(ctx, "persisting external event reference failed",
			"appointment_id", appt.ID,
			"event_id", eventID,
			"error", err,
		)
		return outcomeFailed
	}

	j.notifyClient(ctx, cred, appt, client)

	j.logger.InfoContext(ctx, "appointment mirrored",
		"appointment_id", appt.ID,
		"event_id", eventID,
	)
	return outcomeSynced
}

// notifyClient sends the confirmation mail. Best effort: the event exists
// and the id is persisted whatever happens here, so failures are only
// logged and never retried.
func (j *SyncJob) notifyClient(ctx context.Context, cred *types.Credential, appt *types.Appointment, client *types.Client) {
	recipient := client.PrimaryEmail()
	if recipient == "" {
		return
	}

	subject, body := confirmationMessage(appt, client)
	if err := j.provider.SendNotification(ctx, cred, recipient, subject, body); err != nil {
		j.logger.WarnContext(ctx, "confirmation mail failed",
			"appointment_id", appt.ID,
			"recipient", recipient,
			"error", err,
		)
	}
}
