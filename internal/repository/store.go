// Package repository defines the persistence contracts of the event system
// and implements them on PostgreSQL. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = apperr.NotFound("not found")

// ErrDuplicate is returned when a uniqueness constraint rejects a write.
var ErrDuplicate = apperr.Duplicate("already exists")

// ErrConflict is returned when a concurrent writer won a race.
var ErrConflict = apperr.Conflict("concurrent update")

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	Status model.EventStatus
	ClubID string
}

// EventStore is the event record store.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, f EventFilter) ([]model.Event, error)
	// UpdateEventDraft rewrites the editable fields of an event still in draft.
	UpdateEventDraft(ctx context.Context, e *model.Event) error
	// UpdateEventStatus stores e's status and review fields if the stored
	// status still equals expected, and appends tr to the history. It returns
	// ErrConflict when the status moved underneath the caller.
	UpdateEventStatus(ctx context.Context, e *model.Event, expected model.EventStatus, tr model.Transition) error
	ListTransitions(ctx context.Context, eventID string) ([]model.Transition, error)
	// ListDueForCompletion returns approved events whose start time is not after now.
	ListDueForCompletion(ctx context.Context, now time.Time) ([]model.Event, error)
}

// RegistrationLedger is the registration ledger.
type RegistrationLedger interface {
	// FindRegistration returns the user's active row for the event, or the
	// most recent cancelled one, or ErrNotFound.
	FindRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error)
	// ListRegistrations returns every row for the event in FCFS order.
	ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error)
	// WithEventLock runs fn while holding the event's serialization point.
	// Everything fn writes through the EventTx commits together or not at
	// all. It returns ErrNotFound when the event does not exist.
	WithEventLock(ctx context.Context, eventID string, fn func(EventTx) error) error
}

// EventTx is the view of one event and its ledger under the event lock.
type EventTx interface {
	// Event returns the locked snapshot, reflecting counter changes made in this tx.
	Event() model.Event
	FindActive(ctx context.Context, userID string) (*model.Registration, error)
	LatestForUser(ctx context.Context, userID string) (*model.Registration, error)
	CountRegistered(ctx context.Context, category string) (int, error)
	// ConditionalIncrementCount bumps the participant count unless the event
	// is at capacity, reporting whether a seat was taken.
	ConditionalIncrementCount(ctx context.Context) (bool, error)
	DecrementCount(ctx context.Context) error
	// InsertRegistration stores reg and assigns its ledger sequence.
	InsertRegistration(ctx context.Context, reg *model.Registration) error
	SetRegistrationStatus(ctx context.Context, reg *model.Registration, status model.RegistrationStatus, at time.Time) error
	// Waitlisted returns waitlisted rows in FCFS order.
	Waitlisted(ctx context.Context) ([]model.Registration, error)
}

// ClubStore persists clubs.
type ClubStore interface {
	CreateClub(ctx context.Context, c *model.Club) error
	GetClub(ctx context.Context, id string) (*model.Club, error)
	ListClubs(ctx context.Context) ([]model.Club, error)
	SetClubStatus(ctx context.Context, id string, status model.ClubStatus) error
	// UpdateClub rewrites name, description and officers; status is untouched.
	UpdateClub(ctx context.Context, c *model.Club) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetUserRole(ctx context.Context, id string, role model.Role) error
}

// Store is everything the services need from persistence.
type Store interface {
	EventStore
	RegistrationLedger
	ClubStore
	UserStore
	Close() error
}
