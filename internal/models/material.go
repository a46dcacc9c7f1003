package models

import "time"

// Material is a study resource shared on a subject. Storage mechanics are
// delegated to the external object store; this is a URL reference record.
type Material struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SubjectID uint      `gorm:"not null;index" json:"subject_id"`
	Title     string    `gorm:"not null" json:"title"`
	FileURL   string    `gorm:"not null" json:"file_url"`
	CreatedAt time.Time `json:"uploaded_at"`
}
