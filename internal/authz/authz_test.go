package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

func TestCanCreateEvent(t *testing.T) {
	t.Parallel()

	club := &model.Club{ID: "c1", Status: model.ClubActive, PresidentID: "pres", FacultyCoordinatorID: "fac"}
	admin := model.Actor{ID: "adm", Role: model.RoleAdmin}
	president := model.Actor{ID: "pres", Role: model.RoleStudent}
	faculty := model.Actor{ID: "fac", Role: model.RoleFaculty}
	outsider := model.Actor{ID: "x", Role: model.RoleStudent}

	assert.True(t, CanCreateEvent(admin, club))
	assert.True(t, CanCreateEvent(president, club))
	assert.True(t, CanCreateEvent(faculty, club))
	assert.False(t, CanCreateEvent(outsider, club))
	assert.False(t, CanCreateEvent(model.Actor{}, club))
	assert.False(t, CanCreateEvent(president, nil))

	inactive := *club
	inactive.Status = model.ClubInactive
	assert.False(t, CanCreateEvent(president, &inactive))
	assert.True(t, CanCreateEvent(admin, &inactive))
}

func TestCanApprove(t *testing.T) {
	t.Parallel()

	assert.True(t, CanApprove(model.Actor{ID: "a", Role: model.RoleAdmin}))
	assert.False(t, CanApprove(model.Actor{ID: "f", Role: model.RoleFaculty}))
	assert.False(t, CanApprove(model.Actor{Role: model.RoleAdmin}))
}

func TestCanViewRegistrations(t *testing.T) {
	t.Parallel()

	club := &model.Club{ID: "c1", Status: model.ClubActive, VicePresidentID: "vp"}
	event := &model.Event{ID: "e1", CreatorID: "creator", ClubID: "c1"}

	assert.True(t, CanViewRegistrations(model.Actor{ID: "creator"}, event, club))
	assert.True(t, CanViewRegistrations(model.Actor{ID: "vp"}, event, club))
	assert.True(t, CanViewRegistrations(model.Actor{ID: "adm", Role: model.RoleAdmin}, event, nil))
	assert.False(t, CanViewRegistrations(model.Actor{ID: "student"}, event, club))
}

func TestCanManageUsers(t *testing.T) {
	t.Parallel()

	assert.True(t, CanManageUsers(model.Actor{ID: "a", Role: model.RoleAdmin}))
	assert.False(t, CanManageUsers(model.Actor{ID: "f", Role: model.RoleFaculty}))
	assert.False(t, CanManageUsers(model.Actor{Role: model.RoleAdmin}))
}

func TestCanRegister(t *testing.T) {
	t.Parallel()

	event := &model.Event{ID: "e1"}
	assert.True(t, CanRegister(model.Actor{ID: "s"}, event))
	assert.False(t, CanRegister(model.Actor{}, event))
	assert.False(t, CanRegister(model.Actor{ID: "s"}, nil))
}
