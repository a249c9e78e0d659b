package dto

import "time"

// InvitationRequest sends the body to the selected students. Every "[link]"
// in the body is replaced with the recipient's own signup link.
type InvitationRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,max=500,dive,gt=0"`
	Body       string `json:"body" form:"emailBody" validate:"required,max=20000"`
}

// InvitationStudent is one row of the invitations overview.
type InvitationStudent struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Alert            bool       `json:"alert"`
	SignupURL        string     `json:"signup_url"`
	LastSlotStart    *time.Time `json:"last_slot_start"`
	LastSlotAttended *bool      `json:"last_slot_attended"`
	HasFutureBooking bool       `json:"has_future_booking"`
}

// InvitationOverview lists the tutor's students with booking stats.
type InvitationOverview struct {
	Tutor    TutorResponse       `json:"tutor"`
	Students []InvitationStudent `json:"students"`
}

// InvitationResult summarises a send.
type InvitationResult struct {
	Sent             int      `json:"sent"`
	Failed           int      `json:"failed"`
	Duplicates       int      `json:"duplicates"`
	FailedRecipients []string `json:"failed_recipients"`
}
