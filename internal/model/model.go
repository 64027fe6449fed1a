// Package model defines the core domain types for the campus event system.
package model

import "time"

// EventStatus is an event's position in the approval lifecycle.
type EventStatus string

const (
	StatusDraft           EventStatus = "draft"
	StatusPendingApproval EventStatus = "pending_approval"
	StatusApproved        EventStatus = "approved"
	StatusRejected        EventStatus = "rejected"
	StatusCompleted       EventStatus = "completed"
	StatusCancelled       EventStatus = "cancelled"
)

// Terminal reports whether no further transitions leave this status.
func (s EventStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved,
		StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DefaultCategory is used when a registration names no category.
const DefaultCategory = "participant"

// Event is a club-proposed campus event.
type Event struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Type                 string         `json:"type"`
	Venue                string         `json:"venue"`
	Description          string         `json:"description"`
	Equipment            []string       `json:"equipment,omitempty"`
	StartTime            time.Time      `json:"start_time"`
	RegistrationDeadline *time.Time     `json:"registration_deadline,omitempty"`
	MaxParticipants      *int           `json:"max_participants,omitempty"`
	CurrentParticipants  int            `json:"current_participants"`
	WaitlistEnabled      bool           `json:"waitlist_enabled"`
	Quotas               map[string]int `json:"quotas,omitempty"`
	Status               EventStatus    `json:"status"`
	ClubID               string         `json:"club_id"`
	CreatorID            string         `json:"creator_id"`
	ReviewedBy           *string        `json:"reviewed_by,omitempty"`
	ReviewedAt           *time.Time     `json:"reviewed_at,omitempty"`
	ReviewNotes          string         `json:"review_notes,omitempty"`
	Override             bool           `json:"override,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Remaining returns the number of open seats, or -1 when capacity is unlimited.
func (e *Event) Remaining() int {
	if e.MaxParticipants == nil {
		return -1
	}
	return *e.MaxParticipants - e.CurrentParticipants
}

// IsFull returns true when a capacity is set and no seats remain.
func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants
}

// QuotaFor returns the quota configured for category, if any.
func (e *Event) QuotaFor(category string) (int, bool) {
	q, ok := e.Quotas[category]
	return q, ok
}

// RegistrationStatus is the state of a single ledger row.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// Supplementary holds registrant-provided fields the admission logic never reads.
type Supplementary struct {
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
	EmergencyContact    string `json:"emergency_contact,omitempty"`
	AdditionalInfo      string `json:"additional_info,omitempty"`
}

// Registration is one ledger row for a (event, user) pair.
type Registration struct {
	ID            string             `json:"id"`
	Seq           int64              `json:"seq"`
	EventID       string             `json:"event_id"`
	UserID        string             `json:"user_id"`
	Category      string             `json:"category"`
	Supplementary Supplementary      `json:"supplementary"`
	Status        RegistrationStatus `json:"status"`
	RegisteredAt  time.Time          `json:"registered_at"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Active reports whether the row still holds or waits for a seat.
func (r *Registration) Active() bool {
	return r.Status != RegistrationCancelled
}

// ClubStatus is whether a club may currently organise events.
type ClubStatus string

const (
	ClubActive   ClubStatus = "active"
	ClubInactive ClubStatus = "inactive"
)

// Club is a student organisation that owns events.
type Club struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Status               ClubStatus `json:"status"`
	PresidentID          string     `json:"president_id,omitempty"`
	VicePresidentID      string     `json:"vice_president_id,omitempty"`
	FacultyCoordinatorID string     `json:"faculty_coordinator_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// IsOfficer reports whether userID holds one of the club's officer posts.
func (c *Club) IsOfficer(userID string) bool {
	if userID == "" {
		return false
	}
	return userID == c.PresidentID || userID == c.VicePresidentID || userID == c.FacultyCoordinatorID
}

// Role is a user's campus-wide role.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// User is an account known to the identity layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the actor holds the administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Transition records one lifecycle step of an event.
type Transition struct {
	ID       string      `json:"id"`
	EventID  string      `json:"event_id"`
	From     EventStatus `json:"from"`
	To       EventStatus `json:"to"`
	Action   string      `json:"action"`
	ActorID  string      `json:"actor_id,omitempty"`
	Notes    string      `json:"notes,omitempty"`
	Override bool        `json:"override,omitempty"`
	At       time.Time   `json:"at"`
}

// CreateEventRequest is the payload for proposing a new event.
type CreateEventRequest struct {
	Name                 string         `json:"name" validate:"required,max=200"`
	Type                 string         `json:"type" validate:"required,max=64"`
	Venue                string         `json:"venue" validate:"required,max=200"`
	Description          string         `json:"description" validate:"max=5000"`
	Equipment            []string       `json:"equipment" validate:"max=50,dive,max=100"`
	ClubID               string         `json:"club_id" validate:"required"`
	StartTime            time.Time      `json:"start_time" validate:"required"`
	RegistrationDeadline *time.Time     `json:"registration_deadline"`
	MaxParticipants      *int           `json:"max_participants" validate:"omitempty,gt=0,lte=100000"`
	WaitlistEnabled      *bool          `json:"waitlist_enabled"`
	Quotas               map[string]int `json:"quotas" validate:"omitempty,dive,keys,category,endkeys,gt=0"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	Category      string        `json:"category" validate:"omitempty,category"`
	Supplementary Supplementary `json:"supplementary"`
}

// ReviewRequest carries optional notes for a lifecycle action.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// CreateClubRequest is the payload for registering a club.
type CreateClubRequest struct {
	Name                 string `json:"name" validate:"required,max=200"`
	Description          string `json:"description" validate:"max=5000"`
	PresidentID          string `json:"president_id"`
	VicePresidentID      string `json:"vice_president_id"`
	FacultyCoordinatorID string `json:"faculty_coordinator_id"`
}

// UpdateClubRequest replaces a club's details and officers.
type UpdateClubRequest struct {
	Name                 string `json:"name" validate:"required,max=200"`
	Description          string `json:"description" validate:"max=5000"`
	PresidentID          string `json:"president_id"`
	VicePresidentID      string `json:"vice_president_id"`
	FacultyCoordinatorID string `json:"faculty_coordinator_id"`
}

// ClubStatusRequest toggles a club between active and inactive.
type ClubStatusRequest struct {
	Status ClubStatus `json:"status" validate:"required,oneof=active inactive"`
}

// SetRoleRequest changes a user's campus-wide role.
type SetRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=student faculty admin"`
}

// SignUpRequest creates a new account.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// SignInRequest exchanges credentials for a bearer token.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned after a successful sign-in or sign-up.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
