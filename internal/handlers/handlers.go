// Package handlers exposes the homeids service over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/telhawk-systems/homeids/internal/authz"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/httputil"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/middleware"
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/service"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "homeids_session"

type Handler struct {
	svc          *service.Service
	logger       *logging.Logger
	cookieName   string
	secureCookie bool
}

// Option customizes a Handler.
type Option func(*Handler)

// WithCookie sets the session cookie name and Secure flag.
func WithCookie(name string, secure bool) Option {
	return func(h *Handler) {
		if name != "" {
			h.cookieName = name
		}
		h.secureCookie = secure
	}
}

func NewHandler(svc *service.Service, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{svc: svc, logger: logger, cookieName: DefaultCookieName}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CookieName returns the session cookie name.
func (h *Handler) CookieName() string {
	return h.cookieName
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health(r.Context())
	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, health)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid credentials",
		})
		return
	}
	if err != nil {
		h.internalError(w, r, "login failed", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    sess.Username,
	})
}

// Logout handles POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			h.internalError(w, r, "logout failed", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// Session handles GET /api/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	sess, err := h.svc.Session(r.Context(), cookie.Value)
	if err != nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          sess.Username,
		"expires_at":    sess.ExpiresAt,
	})
}

// Unauthenticated writes the 401 used by session-protected routes.
func (h *Handler) Unauthenticated(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteError(w, http.StatusUnauthorized, "Not authenticated")
}

// Devices handles GET /api/devices
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"devices": h.svc.Devices(user),
	})
}

type controlRequest struct {
	Device string `json:"device"`
	Action string `json:"action"`
}

// ControlDevice handles POST /api/control-device
func (h *Handler) ControlDevice(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := middleware.UserFromContext(r.Context())
	err := h.svc.ControlDevice(r.Context(), user, req.Device, req.Action)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Command sent",
		})
	case errors.Is(err, authz.ErrUnauthorized):
		httputil.WriteError(w, http.StatusForbidden, "Unauthorized device access")
	case errors.Is(err, service.ErrInvalidRequest):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBrokerUnavailable):
		httputil.WriteError(w, http.StatusServiceUnavailable, "Message broker unavailable")
	default:
		h.internalError(w, r, "device control failed", err)
	}
}

// GetLogs handles GET /api/logs?type=&device=&limit=
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f eventlog.Filter
	if t := q.Get("type"); t != "" {
		lt, ok := models.ParseLogType(t)
		if !ok {
			httputil.WriteError(w, http.StatusBadRequest, "invalid log type")
			return
		}
		f.LogType = lt
	}
	f.Device = q.Get("device")

	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}
	f.Limit = limit

	logs, err := h.svc.QueryLogs(r.Context(), f)
	if err != nil {
		h.internalError(w, r, "failed to query logs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// GetAttackLogs handles GET /api/logs/attack?limit=
func (h *Handler) GetAttackLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}

	logs, err := h.svc.AttackLogs(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, "failed to query attack logs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"attacks": logs})
}

// ClearLogs handles POST /api/logs/clear
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	n, err := h.svc.ClearLogs(r.Context(), user)
	if err != nil {
		h.internalError(w, r, "failed to clear logs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logs cleared",
		"deleted": n,
	})
}

func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return limit, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WithContext(r.Context()).Error(msg,
		logging.Method(r.Method), logging.Path(r.URL.Path), logging.Error(err))
	httputil.WriteError(w, http.StatusInternalServerError, msg)
}
