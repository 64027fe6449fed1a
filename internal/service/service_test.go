package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/lifecycle"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type recordingNotifier struct {
	mu        sync.Mutex
	cancelled map[string][]string
	promoted  []model.Registration
}

func (n *recordingNotifier) EventCancelled(_ context.Context, event model.Event, regs []model.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancelled == nil {
		n.cancelled = make(map[string][]string)
	}
	for _, r := range regs {
		if r.Active() {
			n.cancelled[event.ID] = append(n.cancelled[event.ID], r.UserID)
		}
	}
	return nil
}

func (n *recordingNotifier) RegistrationPromoted(_ context.Context, _ model.Event, reg model.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promoted = append(n.promoted, reg)
	return nil
}

type harness struct {
	store    *sqlite.Store
	clock    *fakeClock
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	coord    *RegistrationCoordinator
	events   *EventService
	clubs    *ClubService
	users    *UserService

	admin   model.Actor
	officer model.Actor
	club    *model.Club
}

func newHarness(t *testing.T, policy config.Policy) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := zerolog.Nop()
	h := &harness{
		store:    store,
		clock:    &fakeClock{t: base},
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
	}
	tokens := auth.NewTokens(config.Auth{Secret: "0123456789abcdef", TokenTTL: time.Hour, Issuer: "test"}, h.clock.Now)
	h.coord = NewRegistrationCoordinator(store, h.notifier, h.metrics, &log, policy, h.clock.Now)
	h.events = NewEventService(store, h.notifier, h.metrics, &log, policy, h.clock.Now)
	h.clubs = NewClubService(store, &log, h.clock.Now)
	h.users = NewUserService(store, tokens, []string{"dean@campus.edu"}, &log, h.clock.Now)

	h.admin = h.user(t, model.RoleAdmin)
	h.officer = h.user(t, model.RoleStudent)
	h.club, err = h.clubs.CreateClub(ctx, h.admin, model.CreateClubRequest{Name: "Robotics", PresidentID: h.officer.ID})
	require.NoError(t, err)
	return h
}

// user inserts an account directly and returns it as an actor.
func (h *harness) user(t *testing.T, role model.Role) model.Actor {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@campus.edu",
		Name:         "User",
		Role:         role,
		PasswordHash: "x",
		CreatedAt:    base,
	}
	require.NoError(t, h.store.CreateUser(context.Background(), u))
	return model.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

type eventOpts struct {
	max      *int
	waitlist bool
	quotas   map[string]int
	deadline *time.Time
}

func intPtr(v int) *int { return &v }

// draft creates a draft event owned by the harness club.
func (h *harness) draft(t *testing.T, o eventOpts) *model.Event {
	t.Helper()
	deadline := o.deadline
	if deadline == nil {
		d := base.Add(24 * time.Hour)
		deadline = &d
	}
	waitlist := o.waitlist
	e, err := h.events.CreateEvent(context.Background(), h.officer, model.CreateEventRequest{
		Name:                 "Build Night",
		Type:                 "workshop",
		Venue:                "Lab 2",
		ClubID:               h.club.ID,
		StartTime:            base.Add(48 * time.Hour),
		RegistrationDeadline: deadline,
		MaxParticipants:      o.max,
		WaitlistEnabled:      &waitlist,
		Quotas:               o.quotas,
	})
	require.NoError(t, err)
	return e
}

// approved creates an event and takes it through submit and approve.
func (h *harness) approved(t *testing.T, o eventOpts) *model.Event {
	t.Helper()
	ctx := context.Background()
	e := h.draft(t, o)
	_, err := h.events.Transition(ctx, h.officer, e.ID, lifecycle.ActionSubmit, "")
	require.NoError(t, err)
	e, err = h.events.Transition(ctx, h.admin, e.ID, lifecycle.ActionApprove, "looks good")
	require.NoError(t, err)
	return e
}
