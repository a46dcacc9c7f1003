package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/auth"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
)

var errNoUser = errors.New("no authenticated user")

// currentUser loads the session user. RequireAuth runs before every handler
// that calls this, so a miss means the session went stale mid-request.
func currentUser(db *gorm.DB, r *http.Request) (*models.User, error) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		return nil, errNoUser
	}
	var u models.User
	if err := db.First(&u, uid).Error; err != nil {
		return nil, errNoUser
	}
	return &u, nil
}

// ownsSubject reports whether the professor teaches the given subject.
func ownsSubject(db *gorm.DB, professorID, subjectID uint) bool {
	var count int64
	err := db.Model(&models.Subject{}).
		Where("id = ? AND professor_id = ?", subjectID, professorID).
		Limit(1).Count(&count).Error
	return err == nil && count > 0
}

// isEnrolled reports whether the student is enrolled in the subject.
func isEnrolled(db *gorm.DB, studentID, subjectID uint) bool {
	var count int64
	err := db.Model(&models.Enrollment{}).
		Where("subject_id = ? AND student_id = ?", subjectID, studentID).
		Limit(1).Count(&count).Error
	return err == nil && count > 0
}
