package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func approvedEvent() model.Event {
	return model.Event{
		ID:        "evt-1",
		Status:    model.StatusApproved,
		StartTime: now.Add(48 * time.Hour),
		CreatorID: "creator",
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Input)
		want   Decision
	}{
		{
			name:   "unlimited capacity admits",
			mutate: func(in *Input) {},
			want:   Decision{Outcome: Admit},
		},
		{
			name: "seat left admits",
			mutate: func(in *Input) {
				in.Event.MaxParticipants = intPtr(2)
				in.Event.CurrentParticipants = 1
			},
			want: Decision{Outcome: Admit},
		},
		{
			name: "full without waitlist rejects",
			mutate: func(in *Input) {
				in.Event.MaxParticipants = intPtr(2)
				in.Event.CurrentParticipants = 2
			},
			want: Decision{Outcome: Reject, Reason: ReasonEventFull},
		},
		{
			name: "full with waitlist waitlists",
			mutate: func(in *Input) {
				in.Event.MaxParticipants = intPtr(2)
				in.Event.CurrentParticipants = 2
				in.Policy.WaitlistEnabled = true
			},
			want: Decision{Outcome: Waitlist},
		},
		{
			name: "pending approval rejects regardless of capacity and deadline",
			mutate: func(in *Input) {
				in.Event.Status = model.StatusPendingApproval
				in.Event.RegistrationDeadline = timePtr(now.Add(-time.Hour))
				in.Event.MaxParticipants = intPtr(1)
				in.Event.CurrentParticipants = 1
			},
			want: Decision{Outcome: Reject, Reason: ReasonEventNotApproved},
		},
		{
			name: "deadline passed rejects with seats left",
			mutate: func(in *Input) {
				in.Event.RegistrationDeadline = timePtr(now.Add(-time.Hour))
				in.Event.MaxParticipants = intPtr(10)
			},
			want: Decision{Outcome: Reject, Reason: ReasonDeadlinePassed},
		},
		{
			name: "deadline instant itself is still open",
			mutate: func(in *Input) {
				in.Event.RegistrationDeadline = timePtr(now)
			},
			want: Decision{Outcome: Admit},
		},
		{
			name: "started event rejects",
			mutate: func(in *Input) {
				in.Event.StartTime = now
			},
			want: Decision{Outcome: Reject, Reason: ReasonEventInPast},
		},
		{
			name: "active registration rejects",
			mutate: func(in *Input) {
				in.Existing = &model.Registration{Status: model.RegistrationWaitlisted}
			},
			want: Decision{Outcome: Reject, Reason: ReasonAlreadyRegistered},
		},
		{
			name: "cancelled registration does not block",
			mutate: func(in *Input) {
				in.Existing = &model.Registration{Status: model.RegistrationCancelled}
			},
			want: Decision{Outcome: Admit},
		},
		{
			name: "creator excluded by default",
			mutate: func(in *Input) {
				in.UserID = "creator"
			},
			want: Decision{Outcome: Reject, Reason: ReasonCreatorExcluded},
		},
		{
			name: "creator allowed by policy",
			mutate: func(in *Input) {
				in.UserID = "creator"
				in.Policy.AllowCreatorRegistration = true
			},
			want: Decision{Outcome: Admit},
		},
		{
			name: "category quota full waitlists",
			mutate: func(in *Input) {
				in.Event.Quotas = map[string]int{"performer": 3}
				in.Category = "performer"
				in.CategoryRegistered = 3
				in.Policy.WaitlistEnabled = true
			},
			want: Decision{Outcome: Waitlist},
		},
		{
			name: "other category unaffected by full quota",
			mutate: func(in *Input) {
				in.Event.Quotas = map[string]int{"performer": 3}
				in.Category = "audience"
				in.CategoryRegistered = 5
			},
			want: Decision{Outcome: Admit},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := Input{
				Event:    approvedEvent(),
				UserID:   "student",
				Category: model.DefaultCategory,
				Now:      now,
			}
			tt.mutate(&in)
			assert.Equal(t, tt.want, Evaluate(in))
		})
	}
}

func TestPromotable(t *testing.T) {
	t.Parallel()

	event := approvedEvent()
	event.MaxParticipants = intPtr(1)
	assert.True(t, Promotable(event, model.DefaultCategory, 0, now))

	event.CurrentParticipants = 1
	assert.False(t, Promotable(event, model.DefaultCategory, 1, now), "no seat")

	event.CurrentParticipants = 0
	event.RegistrationDeadline = timePtr(now.Add(-time.Minute))
	assert.False(t, Promotable(event, model.DefaultCategory, 0, now), "deadline passed")

	event.RegistrationDeadline = nil
	event.Status = model.StatusCancelled
	assert.False(t, Promotable(event, model.DefaultCategory, 0, now), "not approved")
}
