package server

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/auth"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/handlers"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/httpx"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/middleware"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/models"
	"github.com/Aditya-Srivastava10/profstudenthub/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	getPost := func(get, post http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				get(w, r)
			case http.MethodPost:
				post(w, r)
			default:
				w.Header().Set("Allow", "GET,POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			}
		}
	}
	postOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
				return
			}
			h(w, r)
		}
	}

	// Subject endpoints
	sh := handlers.NewSubjectHandler(db)
	mux.Handle("/subjects", protect(getPost(sh.List, sh.Create)))
	mux.Handle("/subjects/enroll", protect(postOnly(sh.Enroll)))

	// Assignment endpoints
	ah := handlers.NewAssignmentHandler(db)
	mux.Handle("/assignments", protect(getPost(ah.List, ah.Create)))
	mux.Handle("/assignments/submit", protect(postOnly(ah.Submit)))
	mux.Handle("/assignments/grade", protect(postOnly(ah.Grade)))

	// Material endpoints
	mh := handlers.NewMaterialHandler(db)
	mux.Handle("/materials", protect(getPost(mh.List, mh.Create)))

	// Due/payment ledger endpoints
	dueSvc := services.NewDueService(db)
	dh := handlers.NewDueHandler(db, dueSvc)
	mux.Handle("/dues", protect(getPost(dh.List, dh.Create)))
	mux.Handle("/dues/get", protect(dh.Get))
	mux.Handle("/dues/pay", protect(postOnly(dh.Pay)))
	mux.Handle("/dues/summary", protect(dh.Summary))
	mux.Handle("/dues/sweep", protect(postOnly(dh.Sweep)))
	mux.Handle("/dues/fail", protect(postOnly(dh.Fail)))

	return middleware.RequestID(middleware.Recover(middleware.Logging(mux)))
}
