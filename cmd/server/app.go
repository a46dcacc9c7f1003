package main

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/Aditya-Srivastava10/profstudenthub/internal/server"
)

// NewApp bundles the full route tree behind one handler so end-to-end tests
// can drive the application exactly as main does.
func NewApp(dbConn *gorm.DB) http.Handler {
	return server.New(dbConn)
}
