package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/homeids/internal/authz"
	"github.com/telhawk-systems/homeids/internal/command"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/handlers"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
	"github.com/telhawk-systems/homeids/internal/messaging/memory"
	"github.com/telhawk-systems/homeids/internal/middleware"
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/service"
	"github.com/telhawk-systems/homeids/internal/session"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := eventlog.NewMemoryStore()
	rec := eventlog.NewRecorder(store, logging.Discard())
	acl := authz.DefaultAccessList()
	gate, err := authz.NewGate(acl, rec, logging.Discard())
	require.NoError(t, err)

	broker := messaging.NewBroker(memory.NewBus().Dialer())
	require.NoError(t, broker.Connect(context.Background()))

	svc := service.NewService(service.Dependencies{
		Store:     store,
		Sink:      rec,
		Gate:      gate,
		Publisher: command.NewPublisher(broker),
		Broker:    broker,
		Sessions:  session.NewMemoryStore(time.Hour),
		Catalog:   models.NewDeviceCatalog(models.DefaultDevices()),
		Access:    acl,
	}, service.Config{})

	h := handlers.NewHandler(svc, logging.Discard())
	return NewRouter(h, svc.ResolveUser, middleware.CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		expected int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"logs", http.MethodGet, "/api/logs", "", http.StatusOK},
		{"attack logs", http.MethodGet, "/api/logs/attack", "", http.StatusOK},
		{"session without cookie", http.MethodGet, "/api/session", "", http.StatusUnauthorized},
		{"devices without cookie", http.MethodGet, "/api/devices", "", http.StatusUnauthorized},
		{"clear without cookie", http.MethodPost, "/api/logs/clear", "", http.StatusUnauthorized},
		{"login", http.MethodPost, "/api/login", `{"username":"user1","password":"demo"}`, http.StatusOK},
		{"wrong method", http.MethodDelete, "/api/logs", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/control-device", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
