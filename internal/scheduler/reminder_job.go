package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

// reminderAppointmentStore is the persistence surface the reminder job needs.
type reminderAppointmentStore interface {
	ListPendingInWindow(ctx context.Context, from, to time.Time) ([]*types.Appointment, error)
}

// userReader resolves the owner a digest is addressed to.
type userReader interface {
	Get(ctx context.Context, id string) (*types.User, error)
}

// ReminderJob sends each owner one digest of their pending appointments for
// the current local day. Owners without a usable credential are skipped
// whole; per-owner failures are isolated the same way sync items are.
type ReminderJob struct {
	appointments reminderAppointmentStore
	users        userReader
	clients      clientReader
	credentials  credentialSource
	provider     external.MailClient
	clock        types.Clock
	location     *time.Location
	logger       *slog.Logger
}

// NewReminderJob creates a ReminderJob. The digest day boundary follows loc.
func NewReminderJob(appointments reminderAppointmentStore, users userReader, clients clientReader, credentials credentialSource, provider external.MailClient, clock types.Clock, loc *time.Location, logger *slog.Logger) *ReminderJob {
	if clock == nil {
		clock = types.RealClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderJob{
		appointments: appointments,
		users:        users,
		clients:      clients,
		credentials:  credentials,
		provider:     provider,
		clock:        clock,
		location:     loc,
		logger:       logger,
	}
}

func (j *ReminderJob) ID() JobID    { return JobRemindToday }
func (j *ReminderJob) Name() string { return "Lembretes do dia" }

// Run selects today's pending appointments, groups them by owner and sends
// one digest per owner.
func (j *ReminderJob) Run(ctx context.Context) error {
	now := j.clock.Now().In(j.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	todays, err := j.appointments.ListPendingInWindow(ctx, dayStart, dayEnd)
	if err != nil {
		return err
	}

	byOwner := make(map[string][]*types.Appointment)
	for _, a := range todays {
		byOwner[a.OwnerID] = append(byOwner[a.OwnerID], a)
	}

	// Deterministic send order keeps runs comparable in the logs.
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	var sent, skipped, failed int
	for _, owner := range owners {
		switch j.remindOwner(ctx, owner, byOwner[owner]) {
		case outcomeSynced:
			sent++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}

	j.logger.InfoContext(ctx, "reminder batch finished",
		"appointments", len(todays),
		"owners", len(owners),
		"sent", sent,
		"skipped", skipped,
		"failed", failed,
	)
	return nil
}

// remindOwner builds and sends one owner's digest.
func (j *ReminderJob) remindOwner(ctx context.Context, ownerID string, appts []*types.Appointment) itemOutcome {
	cred, err := j.credentials.GetValid(ctx, ownerID)
	if err != nil {
		if types.IsCode(err, types.ErrCodeNotConnected) {
			j.logger.InfoContext(ctx, "owner has no usable credential; skipping digest",
				"owner_id", ownerID,
			)
			return outcomeSkipped
		}
		j.logger.ErrorContext(ctx, "credential lookup failed",
			"owner_id", ownerID,
			"error", err,
		)
		return outcomeFailed
	}

	owner, err := j.users.Get(ctx, ownerID)
	if err != nil {
		j.logger.WarnContext(ctx, "appointments reference missing owner; skipping digest",
			"owner_id", ownerID,
			"error", types.NewAppError(types.ErrCodeDataInconsistency, "appointments reference missing owner", err),
		)
		return outcomeSkipped
	}

	sort.Slice(appts, func(a, b int) bool {
		return appts[a].ScheduledAt.Before(appts[b].ScheduledAt)
	})

	entries := make([]digestEntry, 0, len(appts))
	for _, a := range appts {
		entries = append(entries, j.digestEntryFor(ctx, a))
	}

	subject, body, err := digestMessage(owner.Name, j.clock.Now().In(j.location), entries)
	if err != nil {
		j.logger.ErrorContext(ctx, "rendering digest failed",
			"owner_id", ownerID,
			"error", err,
		)
		return outcomeFailed
	}

	if err := j.provider.SendNotification(ctx, cred, owner.Email, subject, body); err != nil {
		j.logger.ErrorContext(ctx, "sending digest failed",
			"owner_id", ownerID,
			"recipient", owner.Email,
			"error", err,
		)
		return outcomeFailed
	}

	j.logger.InfoContext(ctx, "digest sent",
		"owner_id", ownerID,
		"appointments", len(appts),
	)
	return outcomeSynced
}

// digestEntryFor resolves display data for one appointment line. A missing
// client does not sink the digest; the line falls back to the title alone.
func (j *ReminderJob) digestEntryFor(ctx context.Context, a *types.Appointment) digestEntry {
	entry := digestEntry{
		Time:     a.ScheduledAt.In(j.location).Format("15:04"),
		Title:    a.Title,
		Kind:     kindLabel(a.Kind),
		Location: a.Location,
	}
	client, err := j.clients.Get(ctx, a.ClientID)
	if err != nil {
		j.logger.WarnContext(ctx, "resolving client for digest line failed",
			"appointment_id", a.ID,
			"client_id", a.ClientID,
			"error", err,
		)
		return entry
	}
	entry.ClientName = client.Name
	return entry
}
