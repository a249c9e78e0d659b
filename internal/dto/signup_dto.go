package dto

import (
	"time"

	"github.com/noah-isme/exeats-api/internal/models"
)

// Booking statuses returned to students.
const (
	BookingStatusBooked      = "booked"
	BookingStatusUnavailable = "unavailable"
)

// BookRequest selects a slot on the signup page.
type BookRequest struct {
	SlotID uint `json:"slot_id" validate:"required,gt=0"`
}

// SignupSlot is a slot as seen by a student.
type SignupSlot struct {
	ID        uint      `json:"id"`
	StartsAt  time.Time `json:"starts_at"`
	Start     string    `json:"start"`
	Location  string    `json:"location"`
	Available bool      `json:"available"`
	Mine      bool      `json:"mine"`
}

// SignupPage lists the future slots of the student's tutor.
type SignupPage struct {
	Student string       `json:"student"`
	Tutor   string       `json:"tutor"`
	Current *SignupSlot  `json:"current"`
	Slots   []SignupSlot `json:"slots"`
}

// BookingResponse is the outcome of a booking attempt.
type BookingResponse struct {
	Status    string      `json:"status"`
	Slot      *SignupSlot `json:"slot,omitempty"`
	EmailSent bool        `json:"email_sent"`
}

// NewSignupSlot converts a slot for the given student.
func NewSignupSlot(slot models.Slot, studentID uint, loc *time.Location) SignupSlot {
	local := slot.StartsAt.In(loc)
	return SignupSlot{
		ID:        slot.ID,
		StartsAt:  local,
		Start:     local.Format(SlotTimeLayout),
		Location:  slot.Location,
		Available: !slot.IsAllocated(),
		Mine:      slot.IsAllocatedTo(studentID),
	}
}
