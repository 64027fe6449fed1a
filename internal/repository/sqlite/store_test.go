package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, max *int) (*model.User, *model.Event) {
	t.Helper()
	ctx := context.Background()

	u := &model.User{ID: uuid.NewString(), Email: uuid.NewString() + "@campus.edu", Name: "Ada", Role: model.RoleStudent, PasswordHash: "x", CreatedAt: base}
	require.NoError(t, s.CreateUser(ctx, u))

	c := &model.Club{ID: uuid.NewString(), Name: "Chess " + uuid.NewString(), Status: model.ClubActive, PresidentID: u.ID, CreatedAt: base}
	require.NoError(t, s.CreateClub(ctx, c))

	deadline := base.Add(24 * time.Hour)
	e := &model.Event{
		ID:                   uuid.NewString(),
		Name:                 "Open Tournament",
		Type:                 "competition",
		Venue:                "Hall A",
		Equipment:            []string{"boards", "clocks"},
		StartTime:            base.Add(48 * time.Hour),
		RegistrationDeadline: &deadline,
		MaxParticipants:      max,
		Quotas:               map[string]int{"arbiter": 1},
		Status:               model.StatusApproved,
		ClubID:               c.ID,
		CreatorID:            u.ID,
		CreatedAt:            base,
		UpdatedAt:            base,
	}
	require.NoError(t, s.CreateEvent(ctx, e))
	return u, e
}

func newUser(t *testing.T, s *Store) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.NewString(), Email: uuid.NewString() + "@campus.edu", Name: "Bo", Role: model.RoleStudent, PasswordHash: "x", CreatedAt: base}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func intPtr(v int) *int { return &v }

func TestEventRoundTrip(t *testing.T) {
	s := openTempStore(t)
	_, e := seed(t, s, intPtr(10))

	got, err := s.GetEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, []string{"boards", "clocks"}, got.Equipment)
	assert.Equal(t, map[string]int{"arbiter": 1}, got.Quotas)
	assert.True(t, got.StartTime.Equal(e.StartTime))
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 10, *got.MaxParticipants)
	assert.Zero(t, got.CurrentParticipants)

	_, err = s.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := s.ListEvents(context.Background(), repository.EventFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = s.ListEvents(context.Background(), repository.EventFilter{Status: model.StatusDraft})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConditionalIncrementStopsAtCapacity(t *testing.T) {
	s := openTempStore(t)
	_, e := seed(t, s, intPtr(1))
	ctx := context.Background()

	var first, second bool
	require.NoError(t, s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
		var err error
		first, err = tx.ConditionalIncrementCount(ctx)
		if err != nil {
			return err
		}
		second, err = tx.ConditionalIncrementCount(ctx)
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentParticipants)
}

func TestWithEventLockRollsBackOnError(t *testing.T) {
	s := openTempStore(t)
	_, e := seed(t, s, intPtr(5))
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
		if _, err := tx.ConditionalIncrementCount(ctx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentParticipants)

	err = s.WithEventLock(ctx, "missing", func(repository.EventTx) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActiveRegistrationIsUnique(t *testing.T) {
	s := openTempStore(t)
	u, e := seed(t, s, nil)
	ctx := context.Background()

	insert := func() (*model.Registration, error) {
		reg := &model.Registration{
			ID: uuid.NewString(), EventID: e.ID, UserID: u.ID, Category: model.DefaultCategory,
			Status: model.RegistrationRegistered, RegisteredAt: base, UpdatedAt: base,
		}
		err := s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
			return tx.InsertRegistration(ctx, reg)
		})
		return reg, err
	}

	first, err := insert()
	require.NoError(t, err)
	assert.Positive(t, first.Seq)

	_, err = insert()
	assert.ErrorIs(t, err, apperr.ErrDuplicate)

	require.NoError(t, s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
		return tx.SetRegistrationStatus(ctx, first, model.RegistrationCancelled, base.Add(time.Hour))
	}))

	again, err := insert()
	require.NoError(t, err)
	assert.Greater(t, again.Seq, first.Seq)

	found, err := s.FindRegistration(ctx, e.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, again.ID, found.ID)

	all, err := s.ListRegistrations(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.RegistrationCancelled, all[0].Status)
	require.NotNil(t, all[0].CancelledAt)
}

func TestWaitlistOrderAndCounts(t *testing.T) {
	s := openTempStore(t)
	_, e := seed(t, s, intPtr(1))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		u := newUser(t, s)
		reg := &model.Registration{
			ID: uuid.NewString(), EventID: e.ID, UserID: u.ID, Category: "arbiter",
			Status: model.RegistrationWaitlisted, RegisteredAt: base, UpdatedAt: base,
			Supplementary: model.Supplementary{DietaryRestrictions: "vegan"},
		}
		require.NoError(t, s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
			return tx.InsertRegistration(ctx, reg)
		}))
		ids = append(ids, reg.ID)
	}

	require.NoError(t, s.WithEventLock(ctx, e.ID, func(tx repository.EventTx) error {
		wl, err := tx.Waitlisted(ctx)
		require.NoError(t, err)
		require.Len(t, wl, 3)
		for i := range wl {
			assert.Equal(t, ids[i], wl[i].ID)
			assert.Equal(t, "vegan", wl[i].Supplementary.DietaryRestrictions)
		}
		n, err := tx.CountRegistered(ctx, "arbiter")
		require.NoError(t, err)
		assert.Zero(t, n)

		assert.True(t, apperr.KindOf(tx.DecrementCount(ctx)) == apperr.KindInvalidState)
		return nil
	}))
}

func TestUpdateEventStatusCompareAndSet(t *testing.T) {
	s := openTempStore(t)
	u, e := seed(t, s, nil)
	ctx := context.Background()

	e.Status = model.StatusCancelled
	e.UpdatedAt = base.Add(time.Hour)
	tr := model.Transition{
		ID: uuid.NewString(), EventID: e.ID, From: model.StatusApproved, To: model.StatusCancelled,
		Action: "cancel", ActorID: u.ID, At: base.Add(time.Hour),
	}
	require.NoError(t, s.UpdateEventStatus(ctx, e, model.StatusApproved, tr))

	tr.ID = uuid.NewString()
	err := s.UpdateEventStatus(ctx, e, model.StatusApproved, tr)
	assert.ErrorIs(t, err, repository.ErrConflict)

	other := *e
	other.ID = "missing"
	err = s.UpdateEventStatus(ctx, &other, model.StatusApproved, tr)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	history, err := s.ListTransitions(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusCancelled, history[0].To)
}

func TestDraftUpdateAndDueForCompletion(t *testing.T) {
	s := openTempStore(t)
	_, e := seed(t, s, nil)
	ctx := context.Background()

	e.Name = "Renamed"
	err := s.UpdateEventDraft(ctx, e)
	assert.ErrorIs(t, err, repository.ErrConflict)

	due, err := s.ListDueForCompletion(ctx, base)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = s.ListDueForCompletion(ctx, e.StartTime)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, e.ID, due[0].ID)
}

func TestClubsAndUsers(t *testing.T) {
	s := openTempStore(t)
	u, e := seed(t, s, nil)
	ctx := context.Background()

	got, err := s.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), apperr.ErrDuplicate)

	require.NoError(t, s.SetClubStatus(ctx, e.ClubID, model.ClubInactive))
	club, err := s.GetClub(ctx, e.ClubID)
	require.NoError(t, err)
	assert.Equal(t, model.ClubInactive, club.Status)
	assert.ErrorIs(t, s.SetClubStatus(ctx, "missing", model.ClubActive), repository.ErrNotFound)

	clubs, err := s.ListClubs(ctx)
	require.NoError(t, err)
	assert.Len(t, clubs, 1)
}

func TestUpdateClubAndRoles(t *testing.T) {
	s := openTempStore(t)
	u, e := seed(t, s, nil)
	other := newUser(t, s)
	ctx := context.Background()

	club, err := s.GetClub(ctx, e.ClubID)
	require.NoError(t, err)
	club.PresidentID = other.ID
	club.FacultyCoordinatorID = u.ID
	club.Description = "weekly blitz"
	require.NoError(t, s.UpdateClub(ctx, club))

	got, err := s.GetClub(ctx, e.ClubID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.PresidentID)
	assert.Equal(t, u.ID, got.FacultyCoordinatorID)
	assert.Equal(t, "weekly blitz", got.Description)
	assert.Equal(t, model.ClubActive, got.Status)

	missing := *club
	missing.ID = "missing"
	missing.Name = "Nowhere"
	assert.ErrorIs(t, s.UpdateClub(ctx, &missing), repository.ErrNotFound)

	require.NoError(t, s.SetUserRole(ctx, other.ID, model.RoleFaculty))
	promoted, err := s.GetUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleFaculty, promoted.Role)
	assert.ErrorIs(t, s.SetUserRole(ctx, "missing", model.RoleAdmin), repository.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
