package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/admission"
	"github.com/Shivanand-hulikatti/campus-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// EventHandler holds the HTTP handlers for events and their registrations.
type EventHandler struct {
	events        *service.EventService
	registrations *service.RegistrationCoordinator
	log           *zerolog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, registrations *service.RegistrationCoordinator, log *zerolog.Logger) *EventHandler {
	return &EventHandler{events: events, registrations: registrations, log: log}
}

// CreateEvent handles POST /events
// Stores a draft event for one of the caller's clubs.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), actor(r), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /events/{id}
// Rewrites a draft event.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), actor(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListEvents handles GET /events
// Supports ?status= and ?club_id= filters.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.events.ListEvents(r.Context(), actor(r), repository.EventFilter{
		Status: model.EventStatus(q.Get("status")),
		ClubID: q.Get("club_id"),
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Transition returns the handler for POST /events/{id}/{action}.
func (h *EventHandler) Transition(action lifecycle.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.ReviewRequest
		if err := decodeOptionalJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
			return
		}

		event, err := h.events.Transition(r.Context(), actor(r), chi.URLParam(r, "id"), action, req.Notes)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}

		writeJSON(w, http.StatusOK, event)
	}
}

// History handles GET /events/{id}/history
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.events.History(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if history == nil {
		history = []model.Transition{}
	}

	writeJSON(w, http.StatusOK, history)
}

// rejection describes why a registration attempt was refused.
type rejection struct {
	status  int
	code    string
	message string
}

var rejections = map[admission.Reason]rejection{
	admission.ReasonAlreadyRegistered: {http.StatusConflict, "ALREADY_REGISTERED", "you are already registered for this event"},
	admission.ReasonEventFull:         {http.StatusConflict, "EVENT_FULL", "event is fully booked"},
	admission.ReasonDeadlinePassed:    {http.StatusUnprocessableEntity, "REGISTRATION_CLOSED", "the registration deadline has passed"},
	admission.ReasonEventNotApproved:  {http.StatusUnprocessableEntity, "EVENT_NOT_APPROVED", "event is not open for registration"},
	admission.ReasonEventInPast:       {http.StatusUnprocessableEntity, "EVENT_IN_PAST", "event has already started"},
	admission.ReasonCreatorExcluded:   {http.StatusForbidden, "CREATOR_EXCLUDED", "event creators cannot register for their own event"},
}

// RegistrationRejected is the body returned for a refused registration.
type RegistrationRejected struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Outcome admission.Outcome `json:"outcome"`
	Reason  admission.Reason  `json:"reason"`
}

// Register handles POST /events/{id}/register
// Admits the caller (201), waitlists them (202) or explains the refusal.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body: "+err.Error())
		return
	}

	res, err := h.registrations.AttemptRegister(r.Context(), chi.URLParam(r, "id"), actor(r), req)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	switch res.Outcome {
	case admission.Admit:
		writeJSON(w, http.StatusCreated, res)
	case admission.Waitlist:
		writeJSON(w, http.StatusAccepted, res)
	default:
		rej, ok := rejections[res.Reason]
		if !ok {
			rej = rejection{http.StatusConflict, "REJECTED", "registration was not accepted"}
		}
		writeJSON(w, rej.status, RegistrationRejected{
			Error:   rej.message,
			Code:    rej.code,
			Outcome: res.Outcome,
			Reason:  res.Reason,
		})
	}
}

// CancelRegistration handles DELETE /events/{id}/registration
// Administrators may pass ?user_id= to cancel on someone's behalf.
func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrations.CancelRegistration(r.Context(), chi.URLParam(r, "id"), actor(r), r.URL.Query().Get("user_id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// ListRegistrations handles GET /events/{id}/registrations
// Returns the ledger in first-come-first-served order.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.events.ListRegistrations(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}
