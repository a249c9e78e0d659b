package models

import "time"

// Student is invited by a tutor and books at most one future slot.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TutorID   uint      `gorm:"not null;index" json:"tutor_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null;index" json:"email"`
	Alert     bool      `gorm:"not null;default:false" json:"alert"`
	CreatedAt time.Time `json:"created_at"`

	Tutor *Tutor `gorm:"foreignKey:TutorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}
