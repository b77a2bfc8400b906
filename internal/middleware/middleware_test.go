package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		existing string
	}{
		{name: "generates new request ID when not present"},
		{name: "propagates existing request ID", existing: "existing-req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.existing != "" {
				req.Header.Set(RequestIDHeader, tt.existing)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.NotEmpty(t, captured)
			assert.Equal(t, captured, w.Header().Get(RequestIDHeader))
			if tt.existing == "" {
				_, err := uuid.Parse(captured)
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.existing, captured)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		config         CORSConfig
		origin         string
		method         string
		expectedOrigin string
		expectedStatus int
		expectedBody   string
		expectedMaxAge string
	}{
		{
			name: "exact origin match",
			config: CORSConfig{
				AllowedOrigins:   []string{"http://localhost:3000"},
				AllowedMethods:   []string{"GET", "POST"},
				AllowedHeaders:   []string{"Content-Type"},
				AllowCredentials: true,
				MaxAge:           600,
			},
			origin:         "http://localhost:3000",
			method:         http.MethodGet,
			expectedOrigin: "http://localhost:3000",
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
			expectedMaxAge: "600",
		},
		{
			name:           "wildcard subdomain match",
			config:         CORSConfig{AllowedOrigins: []string{"*.lab.local"}},
			origin:         "https://ui.lab.local",
			method:         http.MethodGet,
			expectedOrigin: "https://ui.lab.local",
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
			expectedMaxAge: "300",
		},
		{
			name:           "star allows any origin",
			config:         CORSConfig{AllowedOrigins: []string{"*"}},
			origin:         "https://anything.example",
			method:         http.MethodGet,
			expectedOrigin: "https://anything.example",
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
			expectedMaxAge: "300",
		},
		{
			name:           "origin not allowed",
			config:         CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
			origin:         "https://evil.example",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedBody:   "OK",
			expectedMaxAge: "300",
		},
		{
			name:           "preflight short-circuits",
			config:         CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
			origin:         "http://localhost:3000",
			method:         http.MethodOptions,
			expectedOrigin: "http://localhost:3000",
			expectedStatus: http.StatusNoContent,
			expectedMaxAge: "300",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/logs", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			CORS(tt.config)(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.expectedMaxAge, w.Header().Get("Access-Control-Max-Age"))
			assert.Equal(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, tt.config.AllowCredentials, w.Header().Get("Access-Control-Allow-Credentials") == "true")
		})
	}
}

func TestRequireSession(t *testing.T) {
	resolve := func(_ context.Context, id string) (string, error) {
		if id == "good" {
			return "user1", nil
		}
		return "", errors.New("unknown session")
	}
	deny := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	var seenUser string
	handler := RequireSession("homeids_session", resolve, deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		cookie   string
		expected int
		user     string
	}{
		{name: "no cookie", expected: http.StatusUnauthorized},
		{name: "unknown session", cookie: "bad", expected: http.StatusUnauthorized},
		{name: "valid session", cookie: "good", expected: http.StatusOK, user: "user1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "homeids_session", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.user, seenUser)
		})
	}
}
