package dto

import "time"

// Booking feed event types.
const (
	FeedEventBooked = "slot.booked"
)

// BookingEvent is pushed to the owning tutor's feed when a student books.
type BookingEvent struct {
	Type           string    `json:"type"`
	TutorID        uint      `json:"tutor_id"`
	SlotID         uint      `json:"slot_id"`
	StudentID      uint      `json:"student_id"`
	StudentName    string    `json:"student_name"`
	StartsAt       time.Time `json:"starts_at"`
	Location       string    `json:"location"`
	ReleasedSlotID *uint     `json:"released_slot_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
