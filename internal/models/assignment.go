package models

import "time"

// Assignment posted on a subject by its professor.
type Assignment struct {
	ID           uint      `gorm:"not null;primaryKey" json:"id"`
	SubjectID    uint      `gorm:"not null;index" json:"subject_id"`
	Title        string    `gorm:"not null" json:"title"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `gorm:"not null;type:date" json:"due_date"`
	MaxMarks     int       `gorm:"not null;default:100" json:"max_marks"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Submission is a student's answer to an assignment. The file itself lives in
// external object storage; only its URL is recorded here.
type Submission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AssignmentID uint      `gorm:"not null;index;uniqueIndex:uniq_assignment_student" json:"assignment_id"`
	StudentID    uint      `gorm:"not null;index;uniqueIndex:uniq_assignment_student" json:"student_id"`
	FileURL      string    `gorm:"not null" json:"file_url"`
	Note         string    `json:"note"`
	Marks        *int      `json:"marks,omitempty"` // nil until graded
	SubmittedAt  time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
