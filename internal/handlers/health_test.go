package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		query      string
		checks     map[string]CheckFunc
		wantStatus int
		wantHealth string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips checks",
			checks:     map[string]CheckFunc{"store": failing},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "extended all healthy",
			query:      "?mode=extended",
			checks:     map[string]CheckFunc{"store": healthy, "rabbitmq": healthy},
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
			wantChecks: map[string]string{"store": "healthy", "rabbitmq": "healthy"},
		},
		{
			name:       "extended with failure",
			query:      "?mode=extended",
			checks:     map[string]CheckFunc{"store": healthy, "rabbitmq": failing},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
			wantChecks: map[string]string{"store": "healthy", "rabbitmq": "unhealthy: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker()
			for name, fn := range tt.checks {
				h.AddCheck(name, fn)
			}

			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("Expected status %q, got %q", tt.wantHealth, resp.Status)
			}
			if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
				t.Errorf("Invalid timestamp %q", resp.Timestamp)
			}
			if len(resp.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, resp.Checks)
			}
			for name, want := range tt.wantChecks {
				if resp.Checks[name] != want {
					t.Errorf("Check %s = %q, want %q", name, resp.Checks[name], want)
				}
			}
		})
	}
}

func TestHealthChecker_CheckTimeout(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker()
	h.timeout = 10 * time.Millisecond
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 for a check past its deadline, got %d", w.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	VersionHandler("1.2.3")(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	var body struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Data["version"] != "1.2.3" {
		t.Errorf("Unexpected version body %+v", body)
	}
}

func TestOpenAPIHandler(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewOpenAPIHandler(nil).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/x-yaml" {
		t.Fatalf("YAML: status %d, content type %q", w.Code, w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("JSON: status %d", w.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("Failed to decode JSON document: %v", err)
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("Expected paths in document")
	}
	for _, p := range []string{"/api/todos", "/api/todos/{id}"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("Expected path %s in document", p)
		}
	}
}

func TestOpenAPIHandler_InvalidDocument(t *testing.T) {
	t.Parallel()

	h := NewOpenAPIHandler([]byte("paths: [unclosed"))
	w := httptest.NewRecorder()
	h.ServeJSON(w, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for an unparsable document, got %d", w.Code)
	}
}
