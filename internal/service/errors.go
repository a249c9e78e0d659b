package service

import "errors"

var (
	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTutorNotFound is returned when a tutor account no longer exists.
	ErrTutorNotFound = errors.New("tutor not found")
	// ErrSlotNotFound is returned for slots that do not exist or belong to another tutor.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrStudentNotFound is returned for students that do not exist or belong to another tutor.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidSlotTime is returned for start or end times not in dd/mm/yy hh:mm.
	ErrInvalidSlotTime = errors.New("times must be entered as dd/mm/yy hh:mm")
	// ErrTooManySlots is returned when a batch would create an unreasonable number of slots.
	ErrTooManySlots = errors.New("too many slots in one batch")
	// ErrUnrecognisedRoster is returned when no roster format matches the pasted text.
	ErrUnrecognisedRoster = errors.New("student list format not recognised")
	// ErrNoRecipients is returned when none of the selected students belong to the tutor.
	ErrNoRecipients = errors.New("no students selected")
	// ErrInvalidSignupToken is returned for signup links that do not resolve to a student.
	ErrInvalidSignupToken = errors.New("signup link is invalid")
)
