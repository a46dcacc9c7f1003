package models

import "time"

// Audit logging
type AuditLog struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      // who triggered the change, 0 for the sweep
	EntityType string    // ex: "Due", "Payment", "Submission"
	EntityID   uint      // id of the changed entity
	Action     string    // ex: "create", "status_change", "grade"
	OldValue   string    // optional
	NewValue   string    // optional
	CreatedAt  time.Time // when
}
