package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/httpx"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/services"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/store"
)

// DueHandler is the HTTP surface of the due/payment ledger. The current time
// enters the system here (or via ?as_of= in tests/backoffice use) and is
// passed down explicitly; nothing below reads the clock.
type DueHandler struct {
	DB  *gorm.DB
	Svc *services.DueService
}

func NewDueHandler(db *gorm.DB, svc *services.DueService) *DueHandler {
	return &DueHandler{DB: db, Svc: svc}
}

// asOfParam resolves the effective date for a request: ?as_of=YYYY-MM-DD when
// present, wall clock otherwise.
func asOfParam(r *http.Request) time.Time {
	if v := r.URL.Query().Get("as_of"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return time.Now()
}

// scopeFor builds the due filter a user is allowed to see: students their own
// dues, professors the dues attached to their subjects.
func scopeFor(user *models.User) store.DueFilter {
	if user.IsProfessor() {
		return store.DueFilter{ProfessorID: user.ID}
	}
	return store.DueFilter{StudentID: user.ID}
}

// dueView decorates a due with its computed totals for API responses.
type dueView struct {
	models.Due
	LateFee   int64 `json:"late_fee"`
	TotalOwed int64 `json:"total_owed"`
}

func newDueView(d models.Due, asOf time.Time) dueView {
	return dueView{
		Due:       d,
		LateFee:   ledger.LateFee(d.BaseAmount, d.DueDate, d.LateFeeBps, asOf),
		TotalOwed: ledger.TotalOwed(&d, asOf),
	}
}

// List: GET /dues, scoped by role; ?status=, ?subject_id=, ?student_id=
// narrow further (the latter two professor-side only).
func (h *DueHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	asOf := asOfParam(r)
	f := scopeFor(user)
	if v := r.URL.Query().Get("status"); v != "" {
		f.Statuses = []models.DueStatus{models.DueStatus(v)}
	}
	if user.IsProfessor() {
		if sid := subjectIDParam(r); sid != 0 {
			f.SubjectID = sid
		}
		if v := r.URL.Query().Get("student_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				f.StudentID = uint(n)
			}
		}
	}
	dues, err := h.Svc.Store.ListDues(r.Context(), f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_dues", nil)
		return
	}
	views := make([]dueView, 0, len(dues))
	for _, d := range dues {
		views = append(views, newDueView(d, asOf))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views, "total": len(views)})
}

// Get: GET /dues/get?id=N returns the due with its payments and totals.
func (h *DueHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	due, err := h.Svc.Store.GetDue(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_due", nil)
		return
	}
	if !h.canSee(user, due) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	payments, err := h.Svc.Store.ListPayments(r.Context(), due.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_payments", nil)
		return
	}
	asOf := asOfParam(r)
	view := newDueView(*due, asOf)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"due":      view,
		"payments": payments,
		"paid_sum": ledger.PaidSum(payments),
	})
}

func (h *DueHandler) canSee(user *models.User, due *models.Due) bool {
	if !user.IsProfessor() {
		return due.StudentID == user.ID
	}
	return due.SubjectID != nil && ownsSubject(h.DB, user.ID, *due.SubjectID)
}

type createDueReq struct {
	StudentID   uint   `json:"student_id" validate:"required"`
	SubjectID   *uint  `json:"subject_id"`
	Description string `json:"description" validate:"required"`
	BaseAmount  int64  `json:"base_amount" validate:"gte=0"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
	LateFeeBps  int64  `json:"late_fee_bps" validate:"gte=0,lte=10000"`
}

// Create: POST /dues. Professor only. A subject-scoped due requires owning
// the subject and the student being enrolled in it.
func (h *DueHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req createDueReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.SubjectID != nil {
		if !ownsSubject(h.DB, user.ID, *req.SubjectID) {
			httpx.JSONError(w, http.StatusForbidden, "not_your_subject", nil)
			return
		}
		if !isEnrolled(h.DB, req.StudentID, *req.SubjectID) {
			httpx.JSONError(w, http.StatusBadRequest, "student_not_enrolled", nil)
			return
		}
	}
	dueDate, _ := time.Parse("2006-01-02", req.DueDate)
	d := models.Due{
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		Description: req.Description,
		BaseAmount:  req.BaseAmount,
		DueDate:     dueDate,
		LateFeeBps:  req.LateFeeBps,
	}
	if err := h.Svc.CreateDue(r.Context(), &d, user.ID); err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_amount", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_due", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, newDueView(d, asOfParam(r)))
}

type payReq struct {
	DueID     uint   `json:"due_id" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required,oneof=card upi bank_transfer cash"`
	Reference string `json:"reference"`
}

// Pay: POST /dues/pay. A student settles their own due; a professor can
// record an offline (cash) payment against a due on one of their subjects.
func (h *DueHandler) Pay(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req payReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	due, err := h.Svc.Store.GetDue(r.Context(), req.DueID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "due_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_due", nil)
		return
	}
	if !h.canSee(user, due) {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	p := models.Payment{
		DueID:     req.DueID,
		StudentID: due.StudentID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	}
	res, err := h.Svc.RecordPayment(r.Context(), &p, asOfParam(r))
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_amount", nil)
		case errors.Is(err, ledger.ErrOwnershipMismatch):
			httpx.JSONError(w, http.StatusBadRequest, "ownership_mismatch", nil)
		case errors.Is(err, ledger.ErrConflict):
			httpx.JSONError(w, http.StatusConflict, "conflict_retry", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_record_payment", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment":    res.Payment,
		"status":     res.Status,
		"paid_sum":   res.PaidSum,
		"total_owed": res.TotalOwed,
	})
}

// Summary: GET /dues/summary?window_days=7 returns outstanding/collected/overdue
// aggregates for the caller's scope.
func (h *DueHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	windowDays := 7
	if v := r.URL.Query().Get("window_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			windowDays = n
		}
	}
	sum, err := h.Svc.Summarize(r.Context(), scopeFor(user), asOfParam(r), windowDays)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_summarize", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

// Sweep: POST /dues/sweep is a manual trigger for the otherwise scheduled
// pending → overdue transition. Professor only.
func (h *DueHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	n, err := h.Svc.Sweep(r.Context(), asOfParam(r))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "sweep_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transitioned": n})
}

type failReq struct {
	DueID uint `json:"due_id" validate:"required"`
}

// Fail: POST /dues/fail records a gateway failure. Professor only; settled
// dues are reported as unchanged rather than an error.
func (h *DueHandler) Fail(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req failReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	changed, err := h.Svc.MarkFailed(r.Context(), req.DueID, user.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "due_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_mark_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"changed": changed})
}
