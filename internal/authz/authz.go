// Package authz holds the named capability checks shared by every service.
package authz

import "github.com/Shivanand-hulikatti/campus-events/internal/model"

// CanCreateEvent reports whether actor may propose events for club.
// Admins always may; otherwise the actor must be an officer of an active club.
func CanCreateEvent(actor model.Actor, club *model.Club) bool {
	if actor.ID == "" || club == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return club.Status == model.ClubActive && club.IsOfficer(actor.ID)
}

// CanEditEvent reports whether actor may change or submit a draft.
func CanEditEvent(actor model.Actor, event *model.Event, club *model.Club) bool {
	if actor.ID == "" || event == nil {
		return false
	}
	if actor.IsAdmin() || actor.ID == event.CreatorID {
		return true
	}
	return CanCreateEvent(actor, club)
}

// CanApprove reports whether actor may review pending events.
func CanApprove(actor model.Actor) bool {
	return actor.ID != "" && actor.IsAdmin()
}

// CanRegister reports whether actor may ask for a seat at event.
// Whether the creator may register is left to the admission policy.
func CanRegister(actor model.Actor, event *model.Event) bool {
	return actor.ID != "" && event != nil
}

// CanViewRegistrations reports whether actor may read an event's ledger.
func CanViewRegistrations(actor model.Actor, event *model.Event, club *model.Club) bool {
	if actor.ID == "" || event == nil {
		return false
	}
	if actor.IsAdmin() || actor.ID == event.CreatorID {
		return true
	}
	return club != nil && club.IsOfficer(actor.ID)
}

// CanManageUsers reports whether actor may list accounts and change roles.
func CanManageUsers(actor model.Actor) bool {
	return actor.ID != "" && actor.IsAdmin()
}

// CanManageClubs reports whether actor may create clubs or change their status.
func CanManageClubs(actor model.Actor) bool {
	return actor.ID != "" && actor.IsAdmin()
}
