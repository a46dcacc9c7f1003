package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/httpx"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

type SubjectHandler struct{ DB *gorm.DB }

func NewSubjectHandler(db *gorm.DB) *SubjectHandler { return &SubjectHandler{DB: db} }

// List: GET /subjects. Professors see their own, students see enrolled plus
// anything open for enrollment via ?all=1.
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var subjects []models.Subject
	q := h.DB.Order("code")
	switch {
	case user.IsProfessor():
		q = q.Where("professor_id = ?", user.ID)
	case r.URL.Query().Get("all") == "1":
		// full catalogue, for the enroll picker
	default:
		q = q.Joins("JOIN enrollments ON enrollments.subject_id = subjects.id").
			Where("enrollments.student_id = ?", user.ID)
	}
	if err := q.Find(&subjects).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_subjects", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": subjects, "total": len(subjects)})
}

type createSubjectReq struct {
	Code        string `json:"code" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// Create: POST /subjects. Professor only.
func (h *SubjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req createSubjectReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	subject := models.Subject{
		ProfessorID: user.ID,
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
	}
	if err := h.DB.Create(&subject).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "subject_code_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, subject)
}

type enrollReq struct {
	SubjectID uint `json:"subject_id" validate:"required"`
}

// Enroll: POST /subjects/enroll. Student only, idempotent per subject.
func (h *SubjectHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "student_only", nil)
		return
	}
	var req enrollReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	var subject models.Subject
	if err := h.DB.First(&subject, req.SubjectID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "subject_not_found", nil)
		return
	}
	if isEnrolled(h.DB, user.ID, subject.ID) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "already_enrolled"})
		return
	}
	enrollment := models.Enrollment{SubjectID: subject.ID, StudentID: user.ID}
	if err := h.DB.Create(&enrollment).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_enroll", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, enrollment)
}

// subjectIDParam parses ?subject_id= and returns 0 when absent/invalid.
func subjectIDParam(r *http.Request) uint {
	if v := r.URL.Query().Get("subject_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return uint(n)
		}
	}
	return 0
}
