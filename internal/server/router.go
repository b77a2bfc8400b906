// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/homeids/internal/handlers"
	"github.com/telhawk-systems/homeids/internal/middleware"
)

// NewRouter constructs a ServeMux with the homeids API routes registered.
func NewRouter(h *handlers.Handler, resolve middleware.SessionResolver, cors middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireSession(h.CookieName(), resolve, h.Unauthenticated)

	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/session", h.Session)

	mux.Handle("GET /api/devices", auth(http.HandlerFunc(h.Devices)))
	mux.Handle("POST /api/control-device", auth(http.HandlerFunc(h.ControlDevice)))

	mux.HandleFunc("GET /api/logs", h.GetLogs)
	mux.HandleFunc("GET /api/logs/attack", h.GetAttackLogs)
	mux.Handle("POST /api/logs/clear", auth(http.HandlerFunc(h.ClearLogs)))

	return middleware.RequestID(middleware.CORS(cors)(mux))
}
