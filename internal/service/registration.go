package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/admission"
	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/authz"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/notify"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/validate"
)

// Result is the answer to a registration attempt.
type Result struct {
	Outcome      admission.Outcome   `json:"outcome"`
	Reason       admission.Reason    `json:"reason,omitempty"`
	Registration *model.Registration `json:"registration,omitempty"`
}

func rejected(r admission.Reason) Result {
	return Result{Outcome: admission.Reject, Reason: r}
}

// RegistrationCoordinator admits, waitlists and cancels registrations.
type RegistrationCoordinator struct {
	store    repository.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	policy   config.Policy
	now      Clock
}

// NewRegistrationCoordinator constructs a RegistrationCoordinator. A nil
// clock uses time.Now.
func NewRegistrationCoordinator(
	store repository.Store,
	notifier notify.Notifier,
	m *metrics.Metrics,
	log *zerolog.Logger,
	policy config.Policy,
	now Clock,
) *RegistrationCoordinator {
	return &RegistrationCoordinator{
		store:    store,
		notifier: notifier,
		metrics:  m,
		log:      log,
		policy:   policy,
		now:      clockOrNow(now),
	}
}

// AttemptRegister tries to give actor a seat at the event.
//
// A rejection is a normal Result, not an error. Errors are reserved for
// missing events, bad input and storage failures.
func (c *RegistrationCoordinator) AttemptRegister(
	ctx context.Context,
	eventID string,
	actor model.Actor,
	req model.RegisterRequest,
) (Result, error) {
	if err := requireID("event", eventID); err != nil {
		return Result{}, err
	}
	if err := validate.Struct(ctx, req); err != nil {
		return Result{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = model.DefaultCategory
	}

	event, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return Result{}, notFound(err, "event", eventID)
	}
	if !authz.CanRegister(actor, event) {
		return Result{}, apperr.Unauthorized("sign in to register")
	}

	// Lock-free precheck against the snapshot. The lock is only taken when a
	// seat or a waitlist slot might be available.
	if d := c.precheck(ctx, event, actor.ID, category); d.Outcome == admission.Reject {
		c.record(eventID, actor.ID, d.Outcome, d.Reason)
		return rejected(d.Reason), nil
	}

	var res Result
	for attempt := 1; ; attempt++ {
		res, err = c.commit(ctx, eventID, actor.ID, category, req.Supplementary)
		if err == nil {
			break
		}
		if errors.Is(err, apperr.ErrDuplicate) {
			// The unique index caught a concurrent request from the same user.
			res, err = rejected(admission.ReasonAlreadyRegistered), nil
			break
		}
		if errors.Is(err, apperr.ErrConflict) {
			if attempt < maxCommitAttempts {
				c.metrics.Retry()
				c.log.Debug().Err(err).Str("event_id", eventID).Int("attempt", attempt).Msg("registration conflict, retrying")
				continue
			}
			// Sustained contention means the remaining seats went to other callers.
			c.log.Warn().Err(err).Str("event_id", eventID).Str("user_id", actor.ID).Msg("registration conflicts exhausted, rejecting as full")
			res, err = rejected(admission.ReasonEventFull), nil
			break
		}
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, notFound(err, "event", eventID)
		}
		return Result{}, fmt.Errorf("register for event: %w", err)
	}

	c.record(eventID, actor.ID, res.Outcome, res.Reason)
	return res, nil
}

func (c *RegistrationCoordinator) precheck(ctx context.Context, event *model.Event, userID, category string) admission.Decision {
	var existing *model.Registration
	if reg, err := c.store.FindRegistration(ctx, event.ID, userID); err == nil && reg.Active() {
		existing = reg
	}
	// CategoryRegistered stays zero: quotas are only judged under the lock.
	return admission.Evaluate(admission.Input{
		Event:    *event,
		UserID:   userID,
		Category: category,
		Existing: existing,
		Now:      c.now(),
		Policy:   c.admissionPolicy(event),
	})
}

func (c *RegistrationCoordinator) commit(
	ctx context.Context,
	eventID, userID, category string,
	supp model.Supplementary,
) (Result, error) {
	var res Result
	err := c.store.WithEventLock(ctx, eventID, func(tx repository.EventTx) error {
		event := tx.Event()
		existing, err := tx.FindActive(ctx, userID)
		if err != nil {
			return err
		}
		count, err := tx.CountRegistered(ctx, category)
		if err != nil {
			return err
		}

		now := c.now().UTC()
		policy := c.admissionPolicy(&event)
		d := admission.Evaluate(admission.Input{
			Event:              event,
			UserID:             userID,
			Category:           category,
			Existing:           existing,
			CategoryRegistered: count,
			Now:                now,
			Policy:             policy,
		})

		status := model.RegistrationWaitlisted
		switch d.Outcome {
		case admission.Reject:
			res = rejected(d.Reason)
			return nil
		case admission.Admit:
			ok, err := tx.ConditionalIncrementCount(ctx)
			if err != nil {
				return err
			}
			switch {
			case ok:
				status = model.RegistrationRegistered
			case policy.WaitlistEnabled:
				d = admission.Decision{Outcome: admission.Waitlist}
			default:
				res = rejected(admission.ReasonEventFull)
				return nil
			}
		}

		reg := &model.Registration{
			ID:            uuid.New().String(),
			EventID:       eventID,
			UserID:        userID,
			Category:      category,
			Supplementary: supp,
			Status:        status,
			RegisteredAt:  now,
			UpdatedAt:     now,
		}
		if err := tx.InsertRegistration(ctx, reg); err != nil {
			return err
		}
		res = Result{Outcome: d.Outcome, Registration: reg}
		return nil
	})
	return res, err
}

func (c *RegistrationCoordinator) admissionPolicy(event *model.Event) admission.Policy {
	return admission.Policy{
		WaitlistEnabled:          event.WaitlistEnabled,
		AllowCreatorRegistration: c.policy.AllowCreatorRegistration,
	}
}

func (c *RegistrationCoordinator) record(eventID, userID string, outcome admission.Outcome, reason admission.Reason) {
	c.metrics.Admission(string(outcome), string(reason))
	ev := c.log.Info()
	if outcome == admission.Reject {
		ev = c.log.Debug()
	}
	ev.Str("event_id", eventID).
		Str("user_id", userID).
		Str("outcome", string(outcome)).
		Str("reason", string(reason)).
		Msg("registration evaluated")
}

// CancelRegistration withdraws userID's registration for the event.
//
// Cancelling an already cancelled registration returns it unchanged. When a
// seat is freed, the earliest waitlisted registration that still passes its
// own admission checks is promoted in the same transaction.
func (c *RegistrationCoordinator) CancelRegistration(
	ctx context.Context,
	eventID string,
	actor model.Actor,
	userID string,
) (*model.Registration, error) {
	if err := requireID("event", eventID); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = actor.ID
	}
	if actor.ID == "" || (actor.ID != userID && !actor.IsAdmin()) {
		return nil, apperr.Unauthorized("cannot cancel another user's registration")
	}

	var (
		cancelled *model.Registration
		promoted  *model.Registration
		event     model.Event
		err       error
	)
	for attempt := 1; ; attempt++ {
		cancelled, promoted, event, err = c.cancel(ctx, eventID, userID)
		if err == nil {
			break
		}
		if errors.Is(err, apperr.ErrConflict) && attempt < maxCommitAttempts {
			c.metrics.Retry()
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(err, "event", eventID)
		}
		if apperr.KindOf(err) != "" {
			return nil, err
		}
		return nil, fmt.Errorf("cancel registration: %w", err)
	}
	if cancelled == nil {
		return nil, apperr.NotFound("no registration for user %s on event %s", userID, eventID)
	}

	if promoted != nil {
		c.metrics.Promotion()
		c.log.Info().
			Str("event_id", eventID).
			Str("registration_id", promoted.ID).
			Str("user_id", promoted.UserID).
			Msg("waitlisted registration promoted")
		if err := c.notifier.RegistrationPromoted(ctx, event, *promoted); err != nil {
			c.log.Error().Err(err).Str("registration_id", promoted.ID).Msg("promotion notification failed")
		}
	}
	return cancelled, nil
}

func (c *RegistrationCoordinator) cancel(ctx context.Context, eventID, userID string) (cancelled, promoted *model.Registration, event model.Event, err error) {
	err = c.store.WithEventLock(ctx, eventID, func(tx repository.EventTx) error {
		reg, err := tx.FindActive(ctx, userID)
		if err != nil {
			return err
		}
		if reg == nil {
			latest, err := tx.LatestForUser(ctx, userID)
			if err != nil {
				return err
			}
			cancelled = latest
			event = tx.Event()
			return nil
		}

		now := c.now().UTC()
		held := reg.Status == model.RegistrationRegistered
		if err := tx.SetRegistrationStatus(ctx, reg, model.RegistrationCancelled, now); err != nil {
			return err
		}
		cancelled = reg
		if !held {
			event = tx.Event()
			return nil
		}
		if err := tx.DecrementCount(ctx); err != nil {
			return err
		}

		promoted, err = c.promote(ctx, tx, now)
		event = tx.Event()
		return err
	})
	return cancelled, promoted, event, err
}

// promote moves the first promotable waitlisted row into the freed seat.
// Rows whose category quota is still full are skipped, not dropped.
func (c *RegistrationCoordinator) promote(ctx context.Context, tx repository.EventTx, now time.Time) (*model.Registration, error) {
	waiting, err := tx.Waitlisted(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := range waiting {
		w := &waiting[i]
		n, seen := counts[w.Category]
		if !seen {
			if n, err = tx.CountRegistered(ctx, w.Category); err != nil {
				return nil, err
			}
			counts[w.Category] = n
		}
		if !admission.Promotable(tx.Event(), w.Category, n, now) {
			continue
		}
		ok, err := tx.ConditionalIncrementCount(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if err := tx.SetRegistrationStatus(ctx, w, model.RegistrationRegistered, now); err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, nil
}
