package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/store"
)

// conflictRetries bounds how often a payment is replayed after losing the
// status compare-and-set before the conflict is surfaced to the caller.
const conflictRetries = 3

// DueService wraps the store with the ledger's orchestration rules: payment
// retry on conflict, the overdue sweep, reporting and the audit trail.
type DueService struct {
	Store store.DueStore
	DB    *gorm.DB
}

func NewDueService(db *gorm.DB) *DueService {
	return &DueService{Store: store.NewGormStore(db), DB: db}
}

// CreateDue validates and persists a new obligation raised by a professor.
func (s *DueService) CreateDue(ctx context.Context, d *models.Due, actorID uint) error {
	if d.LateFeeBps == 0 {
		d.LateFeeBps = models.DefaultLateFeeBps
	}
	if err := s.Store.CreateDue(ctx, d); err != nil {
		return err
	}
	s.audit(ctx, actorID, "Due", d.ID, "create", "", string(d.Status))
	return nil
}

// RecordPayment appends a payment and returns the recomputed status and
// totals. Lost compare-and-set races are replayed a few times before
// ledger.ErrConflict reaches the caller.
func (s *DueService) RecordPayment(ctx context.Context, p *models.Payment, asOf time.Time) (*store.PaymentResult, error) {
	if p.Reference == "" {
		p.Reference = uuid.NewString()
	}
	var res *store.PaymentResult
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		res, err = s.Store.RecordPayment(ctx, p, asOf)
		if err == nil || !errors.Is(err, ledger.ErrConflict) {
			break
		}
		p.ID = 0 // the rolled-back insert may have assigned one
	}
	if err != nil {
		return nil, err
	}
	s.audit(ctx, p.StudentID, "Payment", res.Payment.ID, "create", "", fmt.Sprintf("%d", p.Amount))
	if res.Status == models.DueStatusPaid {
		s.audit(ctx, p.StudentID, "Due", p.DueID, "status_change", "", string(res.Status))
	}
	return res, nil
}

// Sweep transitions lapsed pending dues to overdue and reports the count.
func (s *DueService) Sweep(ctx context.Context, asOf time.Time) (int64, error) {
	n, err := s.Store.SweepOverdue(ctx, asOf)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.audit(ctx, 0, "Due", 0, "sweep", "", fmt.Sprintf("%d overdue", n))
	}
	return n, nil
}

// MarkFailed records a gateway failure against a due. Already-settled dues
// are left alone (changed=false, nil error).
func (s *DueService) MarkFailed(ctx context.Context, id uint, actorID uint) (bool, error) {
	for _, from := range []models.DueStatus{models.DueStatusPending, models.DueStatusOverdue} {
		changed, err := s.Store.UpdateDueStatus(ctx, id, from, models.DueStatusFailed)
		if err != nil && !errors.Is(err, ledger.ErrConflict) {
			return false, err
		}
		if changed {
			s.audit(ctx, actorID, "Due", id, "status_change", string(from), string(models.DueStatusFailed))
			return true, nil
		}
	}
	return false, nil
}

// Summary is the dashboard projection for one scope (a student's dues, a
// professor's subjects, or everything).
type Summary struct {
	Outstanding  int64        `json:"outstanding"`
	Collected    int64        `json:"collected"`
	OverdueCount int          `json:"overdue_count"`
	DueSoon      []models.Due `json:"due_soon"`
}

// Summarize aggregates the filtered dues as of asOf. windowDays bounds the
// upcoming-deadline list.
func (s *DueService) Summarize(ctx context.Context, f store.DueFilter, asOf time.Time, windowDays int) (*Summary, error) {
	dues, err := s.Store.ListDues(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Outstanding:  ledger.OutstandingTotal(dues, asOf),
		Collected:    ledger.CollectedTotal(dues),
		OverdueCount: ledger.OverdueCount(dues),
		DueSoon:      ledger.DueWithinDays(dues, asOf, windowDays),
	}, nil
}

// audit is best effort; a failed audit write never fails the business action.
func (s *DueService) audit(ctx context.Context, userID uint, entity string, entityID uint, action, oldV, newV string) {
	entry := models.AuditLog{UserID: userID, EntityType: entity, EntityID: entityID, Action: action, OldValue: oldV, NewValue: newV}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("audit write failed: %v", err)
	}
}
