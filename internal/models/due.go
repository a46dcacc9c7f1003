package models

import "time"

// DueStatus is the derived settlement state of a Due.
type DueStatus string

const (
	DueStatusPending DueStatus = "pending"
	DueStatusPaid    DueStatus = "paid"    // terminal
	DueStatusOverdue DueStatus = "overdue"
	DueStatusFailed  DueStatus = "failed" // terminal, set by the payment gateway only
)

// Payment methods accepted by the portal.
const (
	PaymentMethodCard         = "card"
	PaymentMethodUPI          = "upi"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// DefaultLateFeeBps is 5.00% expressed in basis points.
const DefaultLateFeeBps int64 = 500

// Due is an obligation owed by one student, optionally scoped to a subject.
// All amounts are integer minor units (paise). LateFeeBps is the late-fee
// percentage in basis points so fee arithmetic never leaves integers.
// Status is derived from payments + date; Version backs the compare-and-set
// used when it is recomputed.
type Due struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   uint      `gorm:"not null;index" json:"student_id"`
	SubjectID   *uint     `gorm:"index" json:"subject_id,omitempty"`
	Description string    `json:"description"`
	BaseAmount  int64     `gorm:"not null;check:base_amount >= 0" json:"base_amount"`
	DueDate     time.Time `gorm:"not null;type:date" json:"due_date"`
	LateFeeBps  int64     `gorm:"not null;default:500" json:"late_fee_bps"`
	Status      DueStatus `gorm:"not null;default:'pending';index" json:"status"`
	Version     uint      `gorm:"not null;default:0" json:"-"`
	Payments    []Payment `gorm:"foreignKey:DueID" json:"payments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payment is a single settlement event against exactly one Due.
// Rows are append-only and never updated.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DueID     uint      `gorm:"not null;index" json:"due_id"`
	StudentID uint      `gorm:"not null;index" json:"student_id"`
	Amount    int64     `gorm:"not null;check:amount > 0" json:"amount"`
	Method    string    `gorm:"not null" json:"method"`
	Reference string    `gorm:"index" json:"reference,omitempty"` // gateway/external reference
	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}
