package dto

import "github.com/noah-isme/exeats-api/internal/models"

// ImportStudentsRequest carries pasted roster text.
type ImportStudentsRequest struct {
	Text string `json:"text" form:"csvText" validate:"required,max=200000"`
}

// StudentResponse is a student as shown to their tutor.
type StudentResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Alert bool   `json:"alert"`
}

// ImportStudentsResponse summarises a roster import.
type ImportStudentsResponse struct {
	Format   string   `json:"format"`
	Added    int      `json:"added"`
	Skipped  int      `json:"skipped"`
	Rejected []string `json:"rejected"`
}

// StudentsChangeResponse reports a POST to the students page.
type StudentsChangeResponse struct {
	Import  *ImportStudentsResponse `json:"import,omitempty"`
	Deleted int64                   `json:"deleted"`
}

// NewStudentResponse converts a student to its DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:    student.ID,
		Name:  student.Name,
		Email: student.Email,
		Alert: student.Alert,
	}
}

// NewStudentResponseSlice converts students to DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		out = append(out, NewStudentResponse(student))
	}
	return out
}
