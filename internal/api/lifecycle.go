package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// CreateInteractionRequest is the body for logging a client contact.
type CreateInteractionRequest struct {
	ClientID    string    `json:"client_id" validate:"required"`
	Kind        string    `json:"kind" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Channel     string    `json:"channel" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Notes       string    `json:"notes"`
}

// CreateInteraction handles POST /api/v1/interactions. Recording a contact
// also closes the oldest matching pending appointment for the client, so a
// completed D+15 meeting marks the d15 appointment done.
func (h *Handlers) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req CreateInteractionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := ValidateStruct(req); err != nil {
		Error(w, r, err)
		return
	}

	kind, err := types.ParseInteractionKind(req.Kind)
	if err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownEnum, err.Error(), err))
		return
	}
	channel, err := types.ParseInteractionChannel(req.Channel)
	if err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationUnknownEnum, err.Error(), err))
		return
	}

	interaction := &types.Interaction{
		ID:          uuid.NewString(),
		ClientID:    req.ClientID,
		Kind:        kind,
		Date:        req.Date,
		Channel:     channel,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if err := h.interactions.Create(r.Context(), interaction); err != nil {
		Error(w, r, err)
		return
	}

	if err := h.engine.CompleteMatchingAppointment(r.Context(), req.ClientID, kind); err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusCreated, interaction)
}

// RescheduleAppointmentRequest is the body for moving an appointment.
type RescheduleAppointmentRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// RescheduleAppointment handles POST /api/v1/appointments/{id}/reschedule.
func (h *Handlers) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RescheduleAppointmentRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := ValidateStruct(req); err != nil {
		Error(w, r, err)
		return
	}

	appt, err := h.mirror.Reschedule(r.Context(), id, req.ScheduledAt)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, appt)
}

// CancelAppointment handles POST /api/v1/appointments/{id}/cancel.
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.mirror.Cancel(r.Context(), id); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, map[string]string{"id": id, "status": string(types.StatusCanceled)})
}
