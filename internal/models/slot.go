package models

import "time"

// Slot is a bookable start time at a location. AllocatedToID is nil while
// the slot is open.
type Slot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TutorID       uint      `gorm:"not null;index" json:"tutor_id"`
	StartsAt      time.Time `gorm:"not null;index" json:"starts_at"`
	Location      string    `gorm:"size:100;not null" json:"location"`
	Attended      bool      `gorm:"not null;default:false" json:"attended"`
	AllocatedToID *uint     `gorm:"index" json:"allocated_to_id"`
	CreatedAt     time.Time `json:"created_at"`

	Tutor       *Tutor   `gorm:"foreignKey:TutorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	AllocatedTo *Student `gorm:"foreignKey:AllocatedToID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"allocated_to,omitempty"`
}

// IsAllocated reports whether a student holds the slot.
func (s Slot) IsAllocated() bool {
	return s.AllocatedToID != nil
}

// IsAllocatedTo reports whether the given student holds the slot.
func (s Slot) IsAllocatedTo(studentID uint) bool {
	return s.AllocatedToID != nil && *s.AllocatedToID == studentID
}
