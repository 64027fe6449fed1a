// Package lifecycle implements the event approval state machine.
//
//	draft ──submit──▶ pending_approval ──approve──▶ approved ──complete──▶ completed
//	  │                      │                          │
//	  └──override (admin)──▶ │ ◀──────────────────────  └──cancel──▶ cancelled
//	                         └──reject──▶ rejected
//
// The machine is the only code that writes an event's status and review
// fields. Apply computes the next state; callers persist it with a
// compare-and-set on the previous status and then call Committed so hooks
// run only for transitions that actually landed.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/authz"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Action names a lifecycle trigger.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionOverride Action = "override"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// ParseAction maps a route segment to an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rules[a]
	return a, ok
}

// Request describes one attempted transition.
type Request struct {
	Event  model.Event
	Club   *model.Club
	Actor  model.Actor
	Action Action
	Notes  string
	Now    time.Time
}

type rule struct {
	from  model.EventStatus
	to    model.EventStatus
	guard func(Request) error
}

var rules = map[Action]rule{
	ActionSubmit:   {from: model.StatusDraft, to: model.StatusPendingApproval, guard: guardSubmit},
	ActionApprove:  {from: model.StatusPendingApproval, to: model.StatusApproved, guard: guardReviewer},
	ActionReject:   {from: model.StatusPendingApproval, to: model.StatusRejected, guard: guardReviewer},
	ActionOverride: {from: model.StatusDraft, to: model.StatusApproved, guard: guardOverride},
	ActionCancel:   {from: model.StatusApproved, to: model.StatusCancelled, guard: guardCancel},
	ActionComplete: {from: model.StatusApproved, to: model.StatusCompleted, guard: guardComplete},
}

// Hooks are invoked after a transition has been persisted.
type Hooks struct {
	// OnCancelled lets registrants be told their event is off.
	OnCancelled func(ctx context.Context, event model.Event)
	// OnTransition observes every committed transition.
	OnTransition func(ctx context.Context, tr model.Transition)
}

// Machine applies lifecycle rules.
type Machine struct {
	log   *zerolog.Logger
	hooks Hooks
}

// NewMachine constructs a Machine.
func NewMachine(log *zerolog.Logger, hooks Hooks) *Machine {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Machine{log: log, hooks: hooks}
}

// Apply validates req and returns the next event state and its audit row.
// The input event is not modified.
func (m *Machine) Apply(req Request) (model.Event, model.Transition, error) {
	r, ok := rules[req.Action]
	if !ok {
		return model.Event{}, model.Transition{}, apperr.Validation("unknown lifecycle action %q", req.Action)
	}
	if req.Event.Status != r.from {
		return model.Event{}, model.Transition{}, apperr.InvalidState(
			"cannot %s an event in status %s", req.Action, req.Event.Status)
	}
	if err := r.guard(req); err != nil {
		return model.Event{}, model.Transition{}, err
	}

	now := req.Now.UTC()
	next := req.Event
	next.Status = r.to
	next.UpdatedAt = now

	switch req.Action {
	case ActionApprove, ActionReject, ActionOverride:
		reviewer := req.Actor.ID
		next.ReviewedBy = &reviewer
		next.ReviewedAt = &now
		next.ReviewNotes = strings.TrimSpace(req.Notes)
		next.Override = req.Action == ActionOverride
	}

	tr := model.Transition{
		ID:       uuid.New().String(),
		EventID:  req.Event.ID,
		From:     r.from,
		To:       r.to,
		Action:   string(req.Action),
		ActorID:  req.Actor.ID,
		Notes:    strings.TrimSpace(req.Notes),
		Override: req.Action == ActionOverride,
		At:       now,
	}
	return next, tr, nil
}

// Committed runs logging and hooks for a transition that has been stored.
func (m *Machine) Committed(ctx context.Context, event model.Event, tr model.Transition) {
	if tr.Override {
		m.log.Warn().
			Str("event_id", tr.EventID).
			Str("actor_id", tr.ActorID).
			Str("from", string(tr.From)).
			Msg("event approved by administrative override")
	} else {
		m.log.Info().
			Str("event_id", tr.EventID).
			Str("actor_id", tr.ActorID).
			Str("action", tr.Action).
			Str("from", string(tr.From)).
			Str("to", string(tr.To)).
			Msg("event transition")
	}
	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(ctx, tr)
	}
	if tr.To == model.StatusCancelled && m.hooks.OnCancelled != nil {
		m.hooks.OnCancelled(ctx, event)
	}
}

// ValidateProposal checks the fields an event needs before it can be reviewed.
func ValidateProposal(e model.Event, now time.Time) error {
	var missing []string
	if strings.TrimSpace(e.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(e.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(e.Venue) == "" {
		missing = append(missing, "venue")
	}
	if strings.TrimSpace(e.ClubID) == "" {
		missing = append(missing, "club_id")
	}
	if e.StartTime.IsZero() {
		missing = append(missing, "start_time")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !e.StartTime.After(now) {
		return apperr.Validation("start_time must be in the future")
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.Before(e.StartTime) {
		return apperr.Validation("registration_deadline must be before start_time")
	}
	if e.MaxParticipants != nil && *e.MaxParticipants <= 0 {
		return apperr.Validation("max_participants must be a positive integer")
	}
	for category, quota := range e.Quotas {
		if quota <= 0 {
			return apperr.Validation("quota for %q must be a positive integer", category)
		}
		if e.MaxParticipants != nil && quota > *e.MaxParticipants {
			return apperr.Validation("quota for %q exceeds max_participants", category)
		}
	}
	return nil
}

func guardSubmit(req Request) error {
	if !authz.CanEditEvent(req.Actor, &req.Event, req.Club) {
		return apperr.Unauthorized("only the club's officers may submit this event")
	}
	if req.Club == nil || req.Club.Status != model.ClubActive {
		return apperr.InvalidState("club is not active")
	}
	return ValidateProposal(req.Event, req.Now)
}

func guardReviewer(req Request) error {
	if !authz.CanApprove(req.Actor) {
		return apperr.Unauthorized("only administrators may review events")
	}
	return nil
}

func guardOverride(req Request) error {
	if err := guardReviewer(req); err != nil {
		return err
	}
	return ValidateProposal(req.Event, req.Now)
}

func guardCancel(req Request) error {
	if !authz.CanApprove(req.Actor) {
		return apperr.Unauthorized("only administrators may cancel events")
	}
	if !req.Now.Before(req.Event.StartTime) {
		return apperr.InvalidState("event has already started")
	}
	return nil
}

// guardComplete admits the system caller (empty actor) used by the sweeper
// and lazy completion, and administrators.
func guardComplete(req Request) error {
	if req.Actor.ID != "" && !authz.CanApprove(req.Actor) {
		return apperr.Unauthorized("only administrators may complete events")
	}
	if req.Now.Before(req.Event.StartTime) {
		return apperr.InvalidState("event has not started yet")
	}
	return nil
}
