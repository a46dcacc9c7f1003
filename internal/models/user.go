package models

import "time"

// Roles recognised by the portal.
const (
	RoleProfessor = "professor"
	RoleStudent   = "student"
)

// User & auth related models
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique;not null;index" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `gorm:"index" json:"name"`
	Role         string    `gorm:"not null;index" json:"role"` // professor, student
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsProfessor reports whether the user can manage subjects, dues and grading.
func (u *User) IsProfessor() bool { return u.Role == RoleProfessor }
