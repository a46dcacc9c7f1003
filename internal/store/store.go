// Package store is the durable-store boundary of the ledger. It owns every
// read-modify-write against dues and payments so the transition rules stay in
// one transactional code path instead of being re-encoded per call site.
package store

import (
	"context"
	"time"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

// DueFilter narrows ListDues. Zero values mean "no constraint".
// ProfessorID scopes through subject ownership (dues attached to any subject
// the professor teaches).
type DueFilter struct {
	StudentID   uint
	SubjectID   uint
	ProfessorID uint
	Statuses    []models.DueStatus
	DueBefore   *time.Time
}

// PaymentResult reports the outcome of recording a payment: the recomputed
// status plus the totals the caller would otherwise have to re-read.
type PaymentResult struct {
	Payment   *models.Payment
	Status    models.DueStatus
	PaidSum   int64
	TotalOwed int64
}

// DueStore is the store contract consumed by services and handlers.
type DueStore interface {
	CreateDue(ctx context.Context, d *models.Due) error
	GetDue(ctx context.Context, id uint) (*models.Due, error)
	ListDues(ctx context.Context, f DueFilter) ([]models.Due, error)
	ListPayments(ctx context.Context, dueID uint) ([]models.Payment, error)

	// RecordPayment appends the payment and recomputes the due's status in
	// one transaction. It fails with ledger.ErrNotFound, ErrInvalidAmount,
	// ErrOwnershipMismatch or ErrConflict (lost compare-and-set; retry).
	RecordPayment(ctx context.Context, p *models.Payment, asOf time.Time) (*PaymentResult, error)

	// UpdateDueStatus moves a due from one status to another with a
	// compare-and-set. changed=false with a nil error means the due was
	// already past the transition (for example already paid): a no-op,
	// not a conflict.
	UpdateDueStatus(ctx context.Context, id uint, from, to models.DueStatus) (changed bool, err error)

	// SweepOverdue flips every pending due whose due date has lapsed before
	// asOf to overdue and returns how many rows moved. Idempotent.
	SweepOverdue(ctx context.Context, asOf time.Time) (int64, error)
}
