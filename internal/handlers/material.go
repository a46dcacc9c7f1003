package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/httpx"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

type MaterialHandler struct{ DB *gorm.DB }

func NewMaterialHandler(db *gorm.DB) *MaterialHandler { return &MaterialHandler{DB: db} }

// List: GET /materials?subject_id=N
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
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
	var materials []models.Material
	if err := h.DB.Where("subject_id = ?", subjectID).Order("id desc").Find(&materials).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_materials", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": materials, "total": len(materials)})
}

type createMaterialReq struct {
	SubjectID uint   `json:"subject_id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	FileURL   string `json:"file_url" validate:"required,url"`
}

// Create: POST /materials. Professor, own subject only. The file is assumed
// to already live in object storage; only the URL is recorded.
func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(h.DB, r)
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !user.IsProfessor() {
		httpx.JSONError(w, http.StatusForbidden, "professor_only", nil)
		return
	}
	var req createMaterialReq
	if !httpx.Decode(w, r, &req) {
		return
	}
	if !ownsSubject(h.DB, user.ID, req.SubjectID) {
		httpx.JSONError(w, http.StatusForbidden, "not_your_subject", nil)
		return
	}
	m := models.Material{SubjectID: req.SubjectID, Title: strings.TrimSpace(req.Title), FileURL: req.FileURL}
	if err := h.DB.Create(&m).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_material", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}
