package models

import "time"

// Subject taught by exactly one professor.
type Subject struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProfessorID uint      `gorm:"not null;index" json:"professor_id"`
	Code        string    `gorm:"unique;not null" json:"code"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Enrollment links a student to a subject. One row per (subject, student).
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SubjectID uint      `gorm:"not null;index;uniqueIndex:uniq_subject_student" json:"subject_id"`
	StudentID uint      `gorm:"not null;index;uniqueIndex:uniq_subject_student" json:"student_id"`
	CreatedAt time.Time `json:"enrolled_at"`
}
