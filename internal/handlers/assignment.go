package handlers

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/httpx"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/ledger"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

type AssignmentHandler struct{ DB *gorm.DB }

func NewAssignmentHandler(db *gorm.DB) *AssignmentHandler { return &AssignmentHandler{DB: db} }

// List: GET /assignments?subject_id=N
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	subjectID := subjectIDParam(r)
	if subjectID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_subject_id", nil)
		return
	}
	if user.IsProfessor() {
		if !ownsSubject(h.DB, user.ID, subjectID) {
			httpx.JSONError(w, http.StatusForbidden, "not_your_subject", nil)
			return
		}
	} else if !isEnrolled(h.DB, user.ID, subjectID) {
		httpx.JSONError(w, http.StatusForbidden, "not_enrolled", nil)
		return
	}
	var assignments []models.Assignment
	if err := h.DB.Where("subject_id = ?", subjectID).Order("due_date, id").Find(&assignments).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_assignments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": assignments, "total": len(assignments)})
}

type createAssignmentReq struct {
	SubjectID    uint   `json:"subject_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Instructions string `json:"instructions"`
	DueDate      string `json:"due_date" validate:"required,datetime=2006-01-02"`
	MaxMarks     int    `json:"max_marks" validate:"omitempty,gt=0"`
}

// Create: POST /assignments. Professor, own subject only.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req createAssignmentReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if !ownsSubject(h.DB, user.ID, req.SubjectID) {
		httpx.JSONError(w, http.StatusForbidden, "not_your_subject", nil)
		return
	}
	dueDate, _ := time.Parse("2006-01-02", req.DueDate)
	if req.MaxMarks == 0 {
		req.MaxMarks = 100
	}
	a := models.Assignment{
		SubjectID:    req.SubjectID,
		Title:        strings.TrimSpace(req.Title),
		Instructions: req.Instructions,
		DueDate:      ledger.DateOnly(dueDate),
		MaxMarks:     req.MaxMarks,
	}
	if err := h.DB.Create(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_assignment", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

type submitReq struct {
	AssignmentID uint   `json:"assignment_id" validate:"required"`
	FileURL      string `json:"file_url" validate:"required,url"`
	Note         string `json:"note"`
}

// Submit: POST /assignments/submit. Student, enrolled subject only.
// Resubmission overwrites the previous file URL.
func (h *AssignmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "student_only", nil)
		return
	}
	var req submitReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	var a models.Assignment
	if err := h.DB.First(&a, req.AssignmentID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "assignment_not_found", nil)
		return
	}
	if !isEnrolled(h.DB, user.ID, a.SubjectID) {
		httpx.JSONError(w, http.StatusForbidden, "not_enrolled", nil)
		return
	}
	now := time.Now()
	var sub models.Submission
	err = h.DB.Where("assignment_id = ? AND student_id = ?", a.ID, user.ID).First(&sub).Error
	if err == nil {
		sub.FileURL = req.FileURL
		sub.Note = req.Note
		sub.SubmittedAt = now
		if err := h.DB.Save(&sub).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_submit", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, sub)
		return
	}
	sub = models.Submission{AssignmentID: a.ID, StudentID: user.ID, FileURL: req.FileURL, Note: req.Note, SubmittedAt: now}
	if err := h.DB.Create(&sub).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_submit", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

type gradeReq struct {
	SubmissionID uint `json:"submission_id" validate:"required"`
	Marks        int  `json:"marks" validate:"gte=0"`
}

// Grade: POST /assignments/grade. Professor, own subject only.
func (h *AssignmentHandler) Grade(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req gradeReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	var sub models.Submission
	if err := h.DB.First(&sub, req.SubmissionID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "submission_not_found", nil)
		return
	}
	var a models.Assignment
	if err := h.DB.First(&a, sub.AssignmentID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "assignment_not_found", nil)
		return
	}
	if !ownsSubject(h.DB, user.ID, a.SubjectID) {
		httpx.JSONError(w, http.StatusForbidden, "not_your_subject", nil)
		return
	}
	if req.Marks > a.MaxMarks {
		httpx.JSONError(w, http.StatusBadRequest, "marks_exceed_max", map[string]int{"max_marks": a.MaxMarks})
		return
	}
	sub.Marks = &req.Marks
	if err := h.DB.Save(&sub).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_grade", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}
