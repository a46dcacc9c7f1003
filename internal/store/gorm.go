package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

// GormStore implements DueStore on a *gorm.DB (postgres in production,
// sqlite in-memory under test).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) CreateDue(ctx context.Context, d *models.Due) error {
	if d.BaseAmount < 0 {
		return fmt.Errorf("base amount %d: %w", d.BaseAmount, ledger.ErrInvalidAmount)
	}
	if d.LateFeeBps < 0 || d.LateFeeBps > 10000 {
		return fmt.Errorf("late fee %d bps out of range: %w", d.LateFeeBps, ledger.ErrInvalidAmount)
	}
	if d.Status == "" {
		d.Status = models.DueStatusPending
	}
	d.DueDate = ledger.DateOnly(d.DueDate)
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) GetDue(ctx context.Context, id uint) (*models.Due, error) {
	var d models.Due
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("due %d: %w", id, ledger.ErrNotFound)
		}
		return nil, err
	}
	return &d, nil
}

func (s *GormStore) ListDues(ctx context.Context, f DueFilter) ([]models.Due, error) {
	q := s.db.WithContext(ctx).Model(&models.Due{})
	if f.StudentID != 0 {
		q = q.Where("dues.student_id = ?", f.StudentID)
	}
	if f.SubjectID != 0 {
		q = q.Where("dues.subject_id = ?", f.SubjectID)
	}
	if f.ProfessorID != 0 {
		q = q.Joins("JOIN subjects ON subjects.id = dues.subject_id").
			Where("subjects.professor_id = ?", f.ProfessorID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("dues.status IN ?", f.Statuses)
	}
	if f.DueBefore != nil {
		q = q.Where("dues.due_date < ?", ledger.DateOnly(*f.DueBefore))
	}
	var dues []models.Due
	if err := q.Order("dues.due_date, dues.id").Find(&dues).Error; err != nil {
		return nil, err
	}
	return dues, nil
}

func (s *GormStore) ListPayments(ctx context.Context, dueID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("due_id = ?", dueID).
		Order("paid_at, id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// RecordPayment appends the payment and recomputes the due's status in the
// same transaction, so two concurrent payments can never both settle against
// the same stale paid-sum: the loser's compare-and-set on (id, version)
// misses, the transaction rolls back and the caller retries.
func (s *GormStore) RecordPayment(ctx context.Context, p *models.Payment, asOf time.Time) (*PaymentResult, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("payment amount %d: %w", p.Amount, ledger.ErrInvalidAmount)
	}
	var res PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due models.Due
		if err := tx.First(&due, p.DueID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("due %d: %w", p.DueID, ledger.ErrNotFound)
			}
			return err
		}
		if due.StudentID != p.StudentID {
			return fmt.Errorf("due %d belongs to student %d: %w", due.ID, due.StudentID, ledger.ErrOwnershipMismatch)
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = asOf
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		var payments []models.Payment
		if err := tx.Where("due_id = ?", due.ID).Find(&payments).Error; err != nil {
			return err
		}
		newStatus := ledger.ComputeStatus(&due, payments, asOf)
		if newStatus != due.Status {
			out := tx.Model(&models.Due{}).
				Where("id = ? AND version = ?", due.ID, due.Version).
				Updates(map[string]any{"status": newStatus, "version": due.Version + 1})
			if out.Error != nil {
				return out.Error
			}
			if out.RowsAffected == 0 {
				return fmt.Errorf("due %d status recompute: %w", due.ID, ledger.ErrConflict)
			}
		}
		res = PaymentResult{
			Payment:   p,
			Status:    newStatus,
			PaidSum:   ledger.PaidSum(payments),
			TotalOwed: ledger.TotalOwed(&due, asOf),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *GormStore) UpdateDueStatus(ctx context.Context, id uint, from, to models.DueStatus) (bool, error) {
	out := s.db.WithContext(ctx).Model(&models.Due{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "version": gorm.Expr("version + 1")})
	if out.Error != nil {
		return false, out.Error
	}
	if out.RowsAffected > 0 {
		return true, nil
	}
	// No row moved: the due is gone, already at (or past) the target, or a
	// concurrent writer won. Tell those apart so callers can react.
	var due models.Due
	if err := s.db.WithContext(ctx).First(&due, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("due %d: %w", id, ledger.ErrNotFound)
		}
		return false, err
	}
	switch due.Status {
	case to, models.DueStatusPaid, models.DueStatusFailed:
		return false, nil // already there or terminal: no-op, not an error
	}
	return false, fmt.Errorf("due %d is %s, not %s: %w", id, due.Status, from, ledger.ErrConflict)
}

// SweepOverdue is a single conditional UPDATE, so it cannot race unsafely
// with a payment-triggered transition: a due that just went paid no longer
// matches the WHERE clause. Running it twice for the same asOf moves nothing
// the second time.
func (s *GormStore) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	out := s.db.WithContext(ctx).Model(&models.Due{}).
		Where("status = ? AND due_date < ?", models.DueStatusPending, ledger.DateOnly(asOf)).
		Updates(map[string]any{"status": models.DueStatusOverdue, "version": gorm.Expr("version + 1")})
	return out.RowsAffected, out.Error
}
