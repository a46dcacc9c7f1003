package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Subject{}, &models.Enrollment{}, &models.Due{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedStudent(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := models.User{Email: email, PasswordHash: "x", Name: "Student", Role: models.RoleStudent}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return &u
}

// seedScenarioDue creates spec scenario A's due: 50000 paise, due 2025-01-10, 5%.
func seedScenarioDue(t *testing.T, db *gorm.DB, studentID uint) *models.Due {
	t.Helper()
	s := NewGormStore(db)
	d := models.Due{
		StudentID:   studentID,
		Description: "Lab fee",
		BaseAmount:  50000,
		DueDate:     date(2025, time.January, 10),
		LateFeeBps:  500,
	}
	if err := s.CreateDue(context.Background(), &d); err != nil {
		t.Fatalf("create due: %v", err)
	}
	return &d
}

func TestCreateDueValidation(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	bad := models.Due{StudentID: 1, BaseAmount: -1, DueDate: date(2025, time.January, 10)}
	if err := s.CreateDue(ctx, &bad); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative base, got %v", err)
	}
	bad = models.Due{StudentID: 1, BaseAmount: 100, LateFeeBps: 10001, DueDate: date(2025, time.January, 10)}
	if err := s.CreateDue(ctx, &bad); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for bps out of range, got %v", err)
	}
	ok := models.Due{StudentID: 1, BaseAmount: 0, LateFeeBps: 0, DueDate: date(2025, time.January, 10)}
	if err := s.CreateDue(ctx, &ok); err != nil {
		t.Fatalf("zero amounts should be allowed: %v", err)
	}
	if ok.Status != models.DueStatusPending {
		t.Fatalf("expected default pending status, got %s", ok.Status)
	}
}

func TestGetDueNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	if _, err := s.GetDue(context.Background(), 42); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s1@test")
	other := seedStudent(t, db, "s2@test")
	due := seedScenarioDue(t, db, student.ID)
	asOf := date(2025, time.January, 5)

	_, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 0, Method: models.PaymentMethodUPI}, asOf)
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	_, err = s.RecordPayment(ctx, &models.Payment{DueID: 999, StudentID: student.ID, Amount: 100, Method: models.PaymentMethodUPI}, asOf)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: other.ID, Amount: 100, Method: models.PaymentMethodUPI}, asOf)
	if !errors.Is(err, ledger.ErrOwnershipMismatch) {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}
	// failed attempts must not have left payment rows behind
	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no payments recorded, got %d", count)
	}
}

// Scenario C: a partial payment before the due date leaves the due pending.
func TestRecordPaymentPartialStaysPending(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)
	asOf := date(2025, time.January, 5)

	res, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 30000, Method: models.PaymentMethodCard}, asOf)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if res.TotalOwed != 50000 {
		t.Fatalf("expected owed 50000 before due date, got %d", res.TotalOwed)
	}
	if res.PaidSum != 30000 || res.Status != models.DueStatusPending {
		t.Fatalf("expected pending with 30000 paid, got %s with %d", res.Status, res.PaidSum)
	}
}

// Scenario B: paying base plus late fee after the due date settles the due.
func TestRecordPaymentWithLateFeeSettles(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)
	asOf := date(2025, time.January, 15)

	res, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 52500, Method: models.PaymentMethodBankTransfer}, asOf)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if res.TotalOwed != 52500 {
		t.Fatalf("expected owed 52500, got %d", res.TotalOwed)
	}
	if res.Status != models.DueStatusPaid {
		t.Fatalf("expected paid, got %s", res.Status)
	}
	got, err := s.GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if got.Status != models.DueStatusPaid {
		t.Fatalf("status not persisted, got %s", got.Status)
	}
	if got.Version != due.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", due.Version+1, got.Version)
	}
}

// Scenario D's invariant: two split payments both land and both count. With
// 52000 < 52500 owed the due stays overdue, not paid.
func TestSplitPaymentsBothCount(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)
	asOf := date(2025, time.January, 15)

	for i := 0; i < 2; i++ {
		if _, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 26000, Method: models.PaymentMethodUPI}, asOf); err != nil {
			t.Fatalf("payment %d: %v", i+1, err)
		}
	}
	payments, err := s.ListPayments(ctx, due.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if got := ledger.PaidSum(payments); got != 52000 {
		t.Fatalf("expected paid sum 52000, got %d", got)
	}
	got, err := s.GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if got.Status != models.DueStatusOverdue {
		t.Fatalf("52000 < 52500 should leave the due overdue, got %s", got.Status)
	}
}

// Overpayment on a settled due is accepted and the due stays paid; the frozen
// late fee is not recomputed.
func TestPaymentAfterPaidKeepsPaid(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)

	if _, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 50000, Method: models.PaymentMethodCash}, date(2025, time.January, 10)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	res, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 1000, Method: models.PaymentMethodCash}, date(2025, time.February, 1))
	if err != nil {
		t.Fatalf("extra payment: %v", err)
	}
	if res.Status != models.DueStatusPaid {
		t.Fatalf("expected paid to stick, got %s", res.Status)
	}
}

func TestUpdateDueStatus(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)

	changed, err := s.UpdateDueStatus(ctx, due.ID, models.DueStatusPending, models.DueStatusOverdue)
	if err != nil || !changed {
		t.Fatalf("expected transition, got changed=%v err=%v", changed, err)
	}
	// repeat: already there, distinguishable no-op
	changed, err = s.UpdateDueStatus(ctx, due.ID, models.DueStatusPending, models.DueStatusOverdue)
	if err != nil || changed {
		t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
	}
	// conflicting transition from the wrong state
	_, err = s.UpdateDueStatus(ctx, due.ID, models.DueStatusPending, models.DueStatusFailed)
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// missing due
	_, err = s.UpdateDueStatus(ctx, 999, models.DueStatusPending, models.DueStatusOverdue)
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// "Already paid" is a no-op for status updates, never an error.
func TestUpdateDueStatusAlreadyPaid(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)
	if _, err := s.RecordPayment(ctx, &models.Payment{DueID: due.ID, StudentID: student.ID, Amount: 50000, Method: models.PaymentMethodCash}, date(2025, time.January, 10)); err != nil {
		t.Fatalf("settle: %v", err)
	}
	changed, err := s.UpdateDueStatus(ctx, due.ID, models.DueStatusPending, models.DueStatusOverdue)
	if err != nil || changed {
		t.Fatalf("paid due must be untouched: changed=%v err=%v", changed, err)
	}
}

// Scenario A plus the idempotence property: the sweep flips lapsed pending
// dues once and only once.
func TestSweepOverdue(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	lapsed := seedScenarioDue(t, db, student.ID)
	upcoming := models.Due{StudentID: student.ID, BaseAmount: 10000, DueDate: date(2025, time.February, 1), LateFeeBps: 500}
	if err := s.CreateDue(ctx, &upcoming); err != nil {
		t.Fatalf("create upcoming: %v", err)
	}
	settled := seedScenarioDue(t, db, student.ID)
	if _, err := s.RecordPayment(ctx, &models.Payment{DueID: settled.ID, StudentID: student.ID, Amount: 50000, Method: models.PaymentMethodCash}, date(2025, time.January, 10)); err != nil {
		t.Fatalf("settle: %v", err)
	}

	asOf := date(2025, time.January, 15)
	n, err := s.SweepOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 transition, got %d", n)
	}
	// idempotent: same asOf, nothing more to do
	n, err = s.SweepOverdue(ctx, asOf)
	if err != nil || n != 0 {
		t.Fatalf("expected idempotent second run, got n=%d err=%v", n, err)
	}

	for _, tc := range []struct {
		id   uint
		want models.DueStatus
	}{
		{lapsed.ID, models.DueStatusOverdue},
		{upcoming.ID, models.DueStatusPending},
		{settled.ID, models.DueStatusPaid},
	} {
		got, err := s.GetDue(ctx, tc.id)
		if err != nil {
			t.Fatalf("reload %d: %v", tc.id, err)
		}
		if got.Status != tc.want {
			t.Fatalf("due %d: expected %s, got %s", tc.id, tc.want, got.Status)
		}
	}
}

// A due lapsing exactly on asOf is not overdue yet: due_date < asOf is strict.
func TestSweepDueDateBoundary(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()
	student := seedStudent(t, db, "s@test")
	due := seedScenarioDue(t, db, student.ID)

	n, err := s.SweepOverdue(ctx, date(2025, time.January, 10))
	if err != nil || n != 0 {
		t.Fatalf("expected no transition on the due date, got n=%d err=%v", n, err)
	}
	n, err = s.SweepOverdue(ctx, date(2025, time.January, 11))
	if err != nil || n != 1 {
		t.Fatalf("expected transition the day after, got n=%d err=%v", n, err)
	}
	got, _ := s.GetDue(ctx, due.ID)
	if got.Status != models.DueStatusOverdue {
		t.Fatalf("expected overdue, got %s", got.Status)
	}
}

func TestListDuesFilters(t *testing.T) {
	db := setupTestDB(t)
	s := NewGormStore(db)
	ctx := context.Background()

	prof := models.User{Email: "p@test", PasswordHash: "x", Role: models.RoleProfessor}
	if err := db.Create(&prof).Error; err != nil {
		t.Fatalf("seed prof: %v", err)
	}
	subject := models.Subject{ProfessorID: prof.ID, Code: "CS101", Title: "Intro"}
	if err := db.Create(&subject).Error; err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	s1 := seedStudent(t, db, "s1@test")
	s2 := seedStudent(t, db, "s2@test")

	scoped := models.Due{StudentID: s1.ID, SubjectID: &subject.ID, BaseAmount: 10000, DueDate: date(2025, time.January, 10), LateFeeBps: 500}
	general := models.Due{StudentID: s2.ID, BaseAmount: 20000, DueDate: date(2025, time.February, 10), LateFeeBps: 500}
	for _, d := range []*models.Due{&scoped, &general} {
		if err := s.CreateDue(ctx, d); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	byStudent, err := s.ListDues(ctx, DueFilter{StudentID: s1.ID})
	if err != nil || len(byStudent) != 1 || byStudent[0].ID != scoped.ID {
		t.Fatalf("student filter: got %v err=%v", byStudent, err)
	}
	byProf, err := s.ListDues(ctx, DueFilter{ProfessorID: prof.ID})
	if err != nil || len(byProf) != 1 || byProf[0].ID != scoped.ID {
		t.Fatalf("professor scope: got %v err=%v", byProf, err)
	}
	cutoff := date(2025, time.January, 15)
	lapsed, err := s.ListDues(ctx, DueFilter{DueBefore: &cutoff})
	if err != nil || len(lapsed) != 1 || lapsed[0].ID != scoped.ID {
		t.Fatalf("due-before filter: got %v err=%v", lapsed, err)
	}
	pending, err := s.ListDues(ctx, DueFilter{Statuses: []models.DueStatus{models.DueStatusPending}})
	if err != nil || len(pending) != 2 {
		t.Fatalf("status filter: got %d err=%v", len(pending), err)
	}
}
