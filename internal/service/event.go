package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/authz"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/notify"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/validate"
)

// EventService orchestrates event-related business operations.
type EventService struct {
	store    repository.Store
	machine  *lifecycle.Machine
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	policy   config.Policy
	now      Clock
}

// NewEventService constructs an EventService with its dependencies. The
// service owns the lifecycle machine and wires its hooks to notifications
// and metrics.
func NewEventService(
	store repository.Store,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log *zerolog.Logger,
	policy config.Policy,
	now Clock,
) *EventService {
	s := &EventService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		log:      log,
		policy:   policy,
		now:      clockOrNow(now),
	}
	s.machine = lifecycle.NewMachine(log, lifecycle.Hooks{
		OnCancelled:  s.notifyCancelled,
		OnTransition: s.observeTransition,
	})
	return s
}

// CreateEvent stores a new draft proposed by actor.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Actor, req model.CreateEventRequest) (*model.Event, error) {
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	club, err := s.store.GetClub(ctx, req.ClubID)
	if err != nil {
		return nil, notFound(err, "club", req.ClubID)
	}
	if !authz.CanCreateEvent(actor, club) {
		return nil, apperr.Unauthorized("only officers of an active club may propose its events")
	}

	now := s.now().UTC()
	e := model.Event{
		ID:        uuid.New().String(),
		Status:    model.StatusDraft,
		ClubID:    club.ID,
		CreatorID: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.applyRequest(&e, req)
	if err := lifecycle.ValidateProposal(e, now); err != nil {
		return nil, err
	}

	if err := s.store.CreateEvent(ctx, &e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info().Str("event_id", e.ID).Str("club_id", e.ClubID).Str("creator_id", actor.ID).Msg("event draft created")
	return &e, nil
}

// UpdateEvent rewrites a draft. Only drafts are editable and the owning club
// cannot change.
func (s *EventService) UpdateEvent(ctx context.Context, actor model.Actor, id string, req model.CreateEventRequest) (*model.Event, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	if err := validate.Struct(ctx, req); err != nil {
		return nil, err
	}
	e, club, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditEvent(actor, e, club) {
		return nil, apperr.Unauthorized("only the creator or the club's officers may edit this event")
	}
	if e.Status != model.StatusDraft {
		return nil, apperr.InvalidState("only draft events can be edited (status is %s)", e.Status)
	}
	if req.ClubID != e.ClubID {
		return nil, apperr.Validation("club_id cannot be changed")
	}

	now := s.now().UTC()
	s.applyRequest(e, req)
	e.UpdatedAt = now
	if err := lifecycle.ValidateProposal(*e, now); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEventDraft(ctx, e); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.InvalidState("event left draft while being edited")
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func (s *EventService) applyRequest(e *model.Event, req model.CreateEventRequest) {
	e.Name = strings.TrimSpace(req.Name)
	e.Type = strings.TrimSpace(req.Type)
	e.Venue = strings.TrimSpace(req.Venue)
	e.Description = strings.TrimSpace(req.Description)
	e.Equipment = req.Equipment
	e.StartTime = req.StartTime.UTC()
	e.RegistrationDeadline = nil
	if req.RegistrationDeadline != nil {
		d := req.RegistrationDeadline.UTC()
		e.RegistrationDeadline = &d
	}
	e.MaxParticipants = req.MaxParticipants
	e.Quotas = req.Quotas
	e.WaitlistEnabled = s.policy.WaitlistDefault
	if req.WaitlistEnabled != nil {
		e.WaitlistEnabled = *req.WaitlistEnabled
	}
}

// GetEvent returns an event visible to actor. Approved events whose start
// time has passed are completed on the way out.
func (s *EventService) GetEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	e, club, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, e, club) {
		return nil, apperr.NotFound("event %s not found", id)
	}
	return s.completeIfDue(ctx, e), nil
}

// ListEvents returns the events matching f that actor may see.
func (s *EventService) ListEvents(ctx context.Context, actor model.Actor, f repository.EventFilter) ([]model.Event, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	query := f
	if f.Status == model.StatusCompleted {
		// Approved events past their start are completed on the way out, so
		// they must be loaded too; the post-filter below drops the rest.
		query.Status = ""
	}
	events, err := s.store.ListEvents(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	clubs, err := s.clubIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(events))
	for i := range events {
		e := &events[i]
		if !visible(actor, e, clubs[e.ClubID]) {
			continue
		}
		e = s.completeIfDue(ctx, e)
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *EventService) clubIndex(ctx context.Context) (map[string]*model.Club, error) {
	clubs, err := s.store.ListClubs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	idx := make(map[string]*model.Club, len(clubs))
	for i := range clubs {
		idx[clubs[i].ID] = &clubs[i]
	}
	return idx, nil
}

// visible reports whether actor may see e. Unreviewed and rejected events
// are private to the club and administrators.
func visible(actor model.Actor, e *model.Event, club *model.Club) bool {
	switch e.Status {
	case model.StatusApproved, model.StatusCompleted, model.StatusCancelled:
		return true
	}
	return authz.CanEditEvent(actor, e, club)
}

// Transition applies a lifecycle action to the event.
func (s *EventService) Transition(ctx context.Context, actor model.Actor, id string, action lifecycle.Action, notes string) (*model.Event, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	if len(notes) > 2000 {
		return nil, apperr.Validation("notes exceeds maximum of 2000")
	}
	e, club, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, e, club) && !actor.IsAdmin() {
		return nil, apperr.NotFound("event %s not found", id)
	}
	return s.apply(ctx, lifecycle.Request{
		Event:  *e,
		Club:   club,
		Actor:  actor,
		Action: action,
		Notes:  notes,
		Now:    s.now(),
	})
}

func (s *EventService) apply(ctx context.Context, req lifecycle.Request) (*model.Event, error) {
	next, tr, err := s.machine.Apply(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateEventStatus(ctx, &next, req.Event.Status, tr); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("event %s changed status concurrently", req.Event.ID)
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	s.machine.Committed(ctx, next, tr)
	return &next, nil
}

// completeIfDue moves an approved event that has started to completed. A
// failure leaves the event as read; the sweeper will retry.
func (s *EventService) completeIfDue(ctx context.Context, e *model.Event) *model.Event {
	if e.Status != model.StatusApproved || s.now().Before(e.StartTime) {
		return e
	}
	done, err := s.apply(ctx, lifecycle.Request{Event: *e, Action: lifecycle.ActionComplete, Now: s.now()})
	if err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			s.log.Warn().Err(err).Str("event_id", e.ID).Msg("lazy completion failed")
		}
		return e
	}
	return done
}

// CompleteDue completes every approved event whose start time has passed and
// reports how many moved.
func (s *EventService) CompleteDue(ctx context.Context) (int, error) {
	due, err := s.store.ListDueForCompletion(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list due events: %w", err)
	}
	completed := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		_, err := s.apply(ctx, lifecycle.Request{Event: due[i], Action: lifecycle.ActionComplete, Now: s.now()})
		switch {
		case err == nil:
			completed++
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidState):
			// Another writer moved it first.
		default:
			return completed, err
		}
	}
	return completed, nil
}

// ListRegistrations returns the event's ledger to its organisers.
func (s *EventService) ListRegistrations(ctx context.Context, actor model.Actor, id string) ([]model.Registration, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	e, club, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewRegistrations(actor, e, club) {
		return nil, apperr.Unauthorized("only the event's organisers may view registrations")
	}
	regs, err := s.store.ListRegistrations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// History returns the event's lifecycle transitions.
func (s *EventService) History(ctx context.Context, actor model.Actor, id string) ([]model.Transition, error) {
	if err := requireID("event", id); err != nil {
		return nil, err
	}
	e, club, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewRegistrations(actor, e, club) {
		return nil, apperr.Unauthorized("only the event's organisers may view its history")
	}
	trs, err := s.store.ListTransitions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return trs, nil
}

func (s *EventService) load(ctx context.Context, id string) (*model.Event, *model.Club, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "event", id)
	}
	club, err := s.store.GetClub(ctx, e.ClubID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("get club: %w", err)
	}
	return e, club, nil
}

func (s *EventService) notifyCancelled(ctx context.Context, event model.Event) {
	regs, err := s.store.ListRegistrations(ctx, event.ID)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("load registrants for cancellation notice")
		return
	}
	if err := s.notifier.EventCancelled(ctx, event, regs); err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("cancellation notification failed")
	}
}

func (s *EventService) observeTransition(_ context.Context, tr model.Transition) {
	s.metrics.Transition(tr.Action, string(tr.To))
}
