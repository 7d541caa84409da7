package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sabercontabilidade/onboarding/internal/credentials"
	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/scheduler"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

// schedulerControl is the scheduler surface the ops endpoints need.
type schedulerControl interface {
	Status() scheduler.SchedulerStatus
	RunNow(ctx context.Context, id scheduler.JobID) error
}

// credentialManager is the credential-store surface the integration
// endpoints need.
type credentialManager interface {
	Save(ctx context.Context, cred *types.Credential) error
	Disconnect(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (*credentials.ConnectionStatus, error)
}

// userReader checks that a user exists before starting an authorization.
type userReader interface {
	Get(ctx context.Context, id string) (*types.User, error)
}

// interactionStore records logged client contacts.
type interactionStore interface {
	Create(ctx context.Context, i *types.Interaction) error
}

// completionEngine closes pending appointments matched by a new interaction.
type completionEngine interface {
	CompleteMatchingAppointment(ctx context.Context, clientID string, kind types.InteractionKind) error
}

// appointmentMirror applies lifecycle changes locally and propagates them to
// the external calendar.
type appointmentMirror interface {
	Reschedule(ctx context.Context, id string, newTime time.Time) (*types.Appointment, error)
	Cancel(ctx context.Context, id string) error
}

// Handlers holds the dependencies for all HTTP endpoints.
type Handlers struct {
	scheduler    schedulerControl
	credentials  credentialManager
	users        userReader
	authFlow     external.AuthorizationFlow
	interactions interactionStore
	engine       completionEngine
	mirror       appointmentMirror
}

// NewHandlers creates the endpoint set.
func NewHandlers(
	sched schedulerControl,
	creds credentialManager,
	users userReader,
	authFlow external.AuthorizationFlow,
	interactions interactionStore,
	engine completionEngine,
	mirror appointmentMirror,
) *Handlers {
	return &Handlers{
		scheduler:    sched,
		credentials:  creds,
		users:        users,
		authFlow:     authFlow,
		interactions: interactions,
		engine:       engine,
		mirror:       mirror,
	}
}

// GetJobsStatus handles GET /api/v1/jobs/status.
func (h *Handlers) GetJobsStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, h.scheduler.Status())
}

// RunJobResult is the response body for a manual job run.
type RunJobResult struct {
	JobID   string `json:"job_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RunJob handles POST /api/v1/jobs/run/{jobID}. The job body runs
// synchronously; the response reports how it ended. An unknown job id is the
// only request-level error.
func (h *Handlers) RunJob(w http.ResponseWriter, r *http.Request) {
	jobID := scheduler.JobID(chi.URLParam(r, "jobID"))

	if err := h.scheduler.RunNow(r.Context(), jobID); err != nil {
		if types.IsCode(err, types.ErrCodeNotFoundJob) {
			Error(w, r, err)
			return
		}
		// The job ran and failed. That is a valid manual-run outcome, not a
		// request failure.
		JSON(w, r, http.StatusOK, RunJobResult{
			JobID:   string(jobID),
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	JSON(w, r, http.StatusOK, RunJobResult{JobID: string(jobID), Success: true})
}

// BeginGoogleAuth handles GET /integrations/google/init. It validates the
// user and redirects to the provider consent screen with the user id riding
// in the OAuth state parameter.
func (h *Handlers) BeginGoogleAuth(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "user_id query parameter is required", nil))
		return
	}

	if _, err := h.users.Get(r.Context(), userID); err != nil {
		Error(w, r, err)
		return
	}

	http.Redirect(w, r, h.authFlow.BeginAuthorization(userID), http.StatusFound)
}

// GoogleAuthResult is the response body for a completed authorization.
type GoogleAuthResult struct {
	UserID    string `json:"user_id"`
	Connected bool   `json:"connected"`
}

// CompleteGoogleAuth handles GET /integrations/google/callback: the provider
// redirect carrying the authorization code and the state set at init.
func (h *Handlers) CompleteGoogleAuth(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		Error(w, r, types.NewAppError(types.ErrCodeAuthStateInvalid, "callback is missing code or state", nil))
		return
	}

	if _, err := h.users.Get(r.Context(), state); err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeAuthStateInvalid, "state does not reference a known user", err))
		return
	}

	cred, err := h.authFlow.CompleteAuthorization(r.Context(), code, state)
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := h.credentials.Save(r.Context(), cred); err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, GoogleAuthResult{UserID: state, Connected: true})
}

// GetGoogleStatus handles GET /integrations/google/status/{userID}.
func (h *Handlers) GetGoogleStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	status, err := h.credentials.Status(r.Context(), userID)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, status)
}

// DisconnectGoogle handles DELETE /integrations/google/disconnect/{userID}.
// Disconnecting an already-disconnected user succeeds.
func (h *Handlers) DisconnectGoogle(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.credentials.Disconnect(r.Context(), userID); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, GoogleAuthResult{UserID: userID, Connected: false})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
