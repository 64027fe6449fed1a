// Package admission decides whether a user may take a seat at an event.
//
// Evaluate is a pure function: it reads an event snapshot and the requester's
// ledger state and returns a Decision without touching storage. The
// registration coordinator calls it twice per attempt, once as a cheap
// precheck and once under the event lock, so the answer at commit time is
// always computed from the committed ledger.
package admission

import (
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// Outcome is the verdict for one registration attempt.
type Outcome string

const (
	Admit    Outcome = "admitted"
	Waitlist Outcome = "waitlisted"
	Reject   Outcome = "rejected"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAlreadyRegistered Reason = "already_registered"
	ReasonEventNotApproved  Reason = "event_not_approved"
	ReasonEventInPast       Reason = "event_in_past"
	ReasonDeadlinePassed    Reason = "deadline_passed"
	ReasonEventFull         Reason = "event_full"
	ReasonCreatorExcluded   Reason = "creator_excluded"
)

// Policy holds the caller-selected admission rules.
type Policy struct {
	// WaitlistEnabled queues full-capacity requests instead of rejecting them.
	WaitlistEnabled bool
	// AllowCreatorRegistration lets the event's creator take a seat.
	AllowCreatorRegistration bool
}

// Input is everything Evaluate needs to know.
type Input struct {
	Event    model.Event
	UserID   string
	Category string
	// Existing is the requester's non-cancelled registration, if any.
	Existing *model.Registration
	// CategoryRegistered counts registered rows in Category.
	CategoryRegistered int
	Now                time.Time
	Policy             Policy
}

// Decision is the result of an evaluation.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason,omitempty"`
}

// Admitted reports whether the decision grants a seat.
func (d Decision) Admitted() bool { return d.Outcome == Admit }

func admit() Decision { return Decision{Outcome: Admit} }

func waitlist() Decision { return Decision{Outcome: Waitlist} }

func reject(r Reason) Decision { return Decision{Outcome: Reject, Reason: r} }

// Evaluate answers "can this user register for this event right now?".
func Evaluate(in Input) Decision {
	if in.Event.Status != model.StatusApproved {
		return reject(ReasonEventNotApproved)
	}
	if in.Existing != nil && in.Existing.Active() {
		return reject(ReasonAlreadyRegistered)
	}
	if r := openForRegistration(in.Event, in.Now); r != ReasonNone {
		return reject(r)
	}
	if !in.Policy.AllowCreatorRegistration && in.UserID != "" && in.UserID == in.Event.CreatorID {
		return reject(ReasonCreatorExcluded)
	}
	if HasRoom(in.Event, in.Category, in.CategoryRegistered) {
		return admit()
	}
	if in.Policy.WaitlistEnabled {
		return waitlist()
	}
	return reject(ReasonEventFull)
}

// Promotable reports whether a waitlisted row in category may take a freed seat.
func Promotable(event model.Event, category string, categoryRegistered int, now time.Time) bool {
	if event.Status != model.StatusApproved {
		return false
	}
	if openForRegistration(event, now) != ReasonNone {
		return false
	}
	return HasRoom(event, category, categoryRegistered)
}

// HasRoom checks the overall capacity and the category quota.
// A nil capacity is unlimited and a category without a quota is bounded only
// by the overall capacity.
func HasRoom(event model.Event, category string, categoryRegistered int) bool {
	if event.IsFull() {
		return false
	}
	if quota, ok := event.QuotaFor(category); ok && categoryRegistered >= quota {
		return false
	}
	return true
}

func openForRegistration(event model.Event, now time.Time) Reason {
	if !now.Before(event.StartTime) {
		return ReasonEventInPast
	}
	if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
		return ReasonDeadlinePassed
	}
	return ReasonNone
}
