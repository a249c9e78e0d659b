package dto

import (
	"time"

	"github.com/noah-isme/exeats-api/internal/models"
)

// LoginRequest carries tutor credentials from JSON or the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"__email" validate:"required,email,max=100"`
	Password string `json:"password" form:"__password" validate:"required,max=200"`
}

// SettingsRequest updates the tutor's display name.
type SettingsRequest struct {
	Name string `json:"name" form:"name" validate:"required,min=1,max=100"`
}

// TutorResponse is the public view of a tutor account.
type TutorResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse reports whether the caller is logged in.
type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	Tutor         *TutorResponse `json:"tutor,omitempty"`
}

// NewTutorResponse converts a tutor model to its DTO.
func NewTutorResponse(tutor models.Tutor) TutorResponse {
	return TutorResponse{
		ID:        tutor.ID,
		Name:      tutor.Name,
		Email:     tutor.Email,
		IsAdmin:   tutor.IsAdmin,
		CreatedAt: tutor.CreatedAt,
	}
}

// NewTutorResponseSlice converts tutors to DTOs.
func NewTutorResponseSlice(tutors []models.Tutor) []TutorResponse {
	out := make([]TutorResponse, 0, len(tutors))
	for _, tutor := range tutors {
		out = append(out, NewTutorResponse(tutor))
	}
	return out
}
