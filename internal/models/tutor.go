package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Tutor is the account holder who publishes slots and invites students.
type Tutor struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetPassword hashes and stores the supplied plaintext password.
func (t *Tutor) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (t Tutor) CheckPassword(password string) bool {
	if t.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) == nil
}

// Role returns the activity role recorded for actions taken by the tutor.
func (t Tutor) Role() string {
	if t.IsAdmin {
		return RoleAdmin
	}
	return RoleTutor
}

// NormaliseEmail lowercases and trims an address for storage and lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
