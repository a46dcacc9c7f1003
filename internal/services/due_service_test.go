package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/store"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Subject{}, &models.Enrollment{}, &models.Due{}, &models.Payment{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateDueDefaultsAndAudit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()

	d := models.Due{StudentID: 1, Description: "Tuition", BaseAmount: 50000, DueDate: date(2025, time.January, 10)}
	if err := svc.CreateDue(ctx, &d, 9); err != nil {
		t.Fatalf("create due: %v", err)
	}
	if d.LateFeeBps != models.DefaultLateFeeBps {
		t.Fatalf("expected default %d bps, got %d", models.DefaultLateFeeBps, d.LateFeeBps)
	}
	var entry models.AuditLog
	if err := db.Where("entity_type = ? AND entity_id = ?", "Due", d.ID).First(&entry).Error; err != nil {
		t.Fatalf("expected audit entry: %v", err)
	}
	if entry.UserID != 9 || entry.Action != "create" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestRecordPaymentAssignsReference(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()

	d := models.Due{StudentID: 1, BaseAmount: 50000, DueDate: date(2025, time.January, 10)}
	if err := svc.CreateDue(ctx, &d, 0); err != nil {
		t.Fatalf("create due: %v", err)
	}
	db.Create(&models.User{Email: "s@test", PasswordHash: "x", Role: models.RoleStudent})

	p := models.Payment{DueID: d.ID, StudentID: 1, Amount: 50000, Method: models.PaymentMethodUPI}
	res, err := svc.RecordPayment(ctx, &p, date(2025, time.January, 10))
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if res.Payment.Reference == "" {
		t.Fatal("expected a generated payment reference")
	}
	if res.Status != models.DueStatusPaid {
		t.Fatalf("expected paid, got %s", res.Status)
	}
}

// conflictStore fails the first n RecordPayment calls with ErrConflict.
type conflictStore struct {
	store.DueStore
	failures int
	calls    int
}

func (c *conflictStore) RecordPayment(ctx context.Context, p *models.Payment, asOf time.Time) (*store.PaymentResult, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, ledger.ErrConflict
	}
	return c.DueStore.RecordPayment(ctx, p, asOf)
}

func TestRecordPaymentRetriesOnConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()

	d := models.Due{StudentID: 1, BaseAmount: 50000, DueDate: date(2025, time.January, 10)}
	if err := svc.CreateDue(ctx, &d, 0); err != nil {
		t.Fatalf("create due: %v", err)
	}

	cs := &conflictStore{DueStore: svc.Store, failures: 2}
	svc.Store = cs
	p := models.Payment{DueID: d.ID, StudentID: 1, Amount: 50000, Method: models.PaymentMethodCard}
	res, err := svc.RecordPayment(ctx, &p, date(2025, time.January, 5))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if cs.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", cs.calls)
	}
	if res.Status != models.DueStatusPaid {
		t.Fatalf("expected paid, got %s", res.Status)
	}
}

func TestRecordPaymentSurfacesPersistentConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()

	d := models.Due{StudentID: 1, BaseAmount: 50000, DueDate: date(2025, time.January, 10)}
	if err := svc.CreateDue(ctx, &d, 0); err != nil {
		t.Fatalf("create due: %v", err)
	}
	svc.Store = &conflictStore{DueStore: svc.Store, failures: 100}
	p := models.Payment{DueID: d.ID, StudentID: 1, Amount: 50000, Method: models.PaymentMethodCard}
	if _, err := svc.RecordPayment(ctx, &p, date(2025, time.January, 5)); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausted retries, got %v", err)
	}
}

func TestMarkFailed(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()

	pending := models.Due{StudentID: 1, BaseAmount: 10000, DueDate: date(2025, time.January, 10)}
	paid := models.Due{StudentID: 1, BaseAmount: 10000, DueDate: date(2025, time.January, 10)}
	for _, d := range []*models.Due{&pending, &paid} {
		if err := svc.CreateDue(ctx, d, 0); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.RecordPayment(ctx, &models.Payment{DueID: paid.ID, StudentID: 1, Amount: 10000, Method: models.PaymentMethodCash}, date(2025, time.January, 5)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	changed, err := svc.MarkFailed(ctx, pending.ID, 9)
	if err != nil || !changed {
		t.Fatalf("expected pending -> failed, got changed=%v err=%v", changed, err)
	}
	changed, err = svc.MarkFailed(ctx, paid.ID, 9)
	if err != nil || changed {
		t.Fatalf("paid due must stay paid, got changed=%v err=%v", changed, err)
	}
}

func TestSummarize(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDueService(db)
	ctx := context.Background()
	asOf := date(2025, time.January, 15)

	overdue := models.Due{StudentID: 1, BaseAmount: 50000, DueDate: date(2025, time.January, 10)}
	upcoming := models.Due{StudentID: 1, BaseAmount: 20000, DueDate: date(2025, time.January, 18)}
	settled := models.Due{StudentID: 1, BaseAmount: 10000, DueDate: date(2025, time.January, 20)}
	otherStudent := models.Due{StudentID: 2, BaseAmount: 70000, DueDate: date(2025, time.January, 20)}
	for _, d := range []*models.Due{&overdue, &upcoming, &settled, &otherStudent} {
		if err := svc.CreateDue(ctx, d, 0); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := svc.RecordPayment(ctx, &models.Payment{DueID: settled.ID, StudentID: 1, Amount: 10000, Method: models.PaymentMethodUPI}, date(2025, time.January, 12)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := svc.Sweep(ctx, asOf); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	sum, err := svc.Summarize(ctx, store.DueFilter{StudentID: 1}, asOf, 7)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	// overdue 50000+2500 late fee, upcoming 20000
	if sum.Outstanding != 72500 {
		t.Fatalf("expected outstanding 72500, got %d", sum.Outstanding)
	}
	if sum.Collected != 10000 {
		t.Fatalf("expected collected 10000, got %d", sum.Collected)
	}
	if sum.OverdueCount != 1 {
		t.Fatalf("expected 1 overdue, got %d", sum.OverdueCount)
	}
	if len(sum.DueSoon) != 1 || sum.DueSoon[0].ID != upcoming.ID {
		t.Fatalf("expected upcoming due in window, got %+v", sum.DueSoon)
	}
}
