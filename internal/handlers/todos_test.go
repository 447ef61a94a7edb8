package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/queue"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/benvon/simple-todo/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []*queue.Event
	err    error
}

var _ queue.Publisher = (*mockPublisher)(nil)

func (m *mockPublisher) Publish(_ context.Context, e *queue.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) types() []queue.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails every call with err
type failingStore struct {
	err error
}

var _ store.Store = failingStore{}

func (f failingStore) List(context.Context) ([]models.Todo, error) { return nil, f.err }
func (f failingStore) Create(context.Context, models.Todo) (*models.Todo, error) {
	return nil, f.err
}
func (f failingStore) Update(context.Context, models.Todo) (*models.Todo, error) {
	return nil, f.err
}
func (f failingStore) Delete(context.Context, uuid.UUID) error { return f.err }

func newTestRouter(s store.Store, opts ...TodoHandlerOption) *mux.Router {
	r := mux.NewRouter()
	NewTodoHandler(s, nil, opts...).RegisterRoutes(r.PathPrefix("/api/todos").Subrouter())
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTodo(t *testing.T, w *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var todo models.Todo
	if err := json.NewDecoder(w.Body).Decode(&todo); err != nil {
		t.Fatalf("Failed to decode todo: %v (body %q)", err, w.Body.String())
	}
	return todo
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if success, _ := body["success"].(bool); success {
		t.Error("Expected success to be false")
	}
	msg, _ := body["message"].(string)
	return msg
}

func TestListTodos_EmptyIsArray(t *testing.T) {
	t.Parallel()

	r := newTestRouter(store.NewMemoryStore())
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/todos", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}

func TestCreateTodo(t *testing.T) {
	t.Parallel()

	clientID := uuid.New()
	tests := []struct {
		name        string
		body        any
		rawBody     string
		validator   *validation.Validator
		seed        []models.Todo
		wantStatus  int
		wantMessage string
		check       func(*testing.T, models.Todo)
	}{
		{
			name:       "assigns id and trims text",
			body:       map[string]any{"text": "  Buy milk  "},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, todo models.Todo) {
				if todo.ID == uuid.Nil || todo.Text != "Buy milk" || todo.Completed {
					t.Errorf("Unexpected todo %+v", todo)
				}
			},
		},
		{
			name:       "keeps client id and completed",
			body:       map[string]any{"id": clientID, "text": "Walk dog", "completed": true},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, todo models.Todo) {
				if todo.ID != clientID || !todo.Completed {
					t.Errorf("Unexpected todo %+v", todo)
				}
			},
		},
		{
			name:        "empty text",
			body:        map[string]any{"text": "   "},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Todo cannot be empty.",
		},
		{
			name:        "text too long",
			body:        map[string]any{"text": strings.Repeat("a", 31)},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Todo must not exceed 30 characters.",
		},
		{
			name:        "markup only",
			body:        map[string]any{"text": "<b></b>"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Todo cannot be empty.",
		},
		{
			name:        "invalid json",
			rawBody:     "{not json",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
		},
		{
			name:       "duplicate id",
			body:       map[string]any{"id": clientID, "text": "again"},
			seed:       []models.Todo{{ID: clientID, Text: "first"}},
			wantStatus: http.StatusConflict,
		},
		{
			name:        "duplicate text rejected when configured",
			body:        map[string]any{"text": "Buy milk"},
			validator:   validation.NewValidator(30, true),
			seed:        []models.Todo{{ID: uuid.New(), Text: "Buy milk"}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Duplicate todo text.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := store.NewMemoryStore()
			for _, todo := range tt.seed {
				if _, err := s.Create(context.Background(), todo); err != nil {
					t.Fatal(err)
				}
			}
			pub := &mockPublisher{}
			r := newTestRouter(s, WithTodoValidator(tt.validator), WithTodoPublisher(pub))

			req := newTestRequest(http.MethodPost, "/api/todos", tt.body)
			if tt.rawBody != "" {
				req = httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(tt.rawBody))
			}
			w := serve(r, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (body %q)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				if msg := errorMessage(t, w); tt.wantMessage != "" && msg != tt.wantMessage {
					t.Errorf("Expected message %q, got %q", tt.wantMessage, msg)
				}
				if len(pub.types()) != 0 {
					t.Errorf("Expected no events for a rejected request, got %v", pub.types())
				}
				return
			}

			todo := decodeTodo(t, w)
			tt.check(t, todo)
			if got := pub.types(); len(got) != 1 || got[0] != queue.EventTodoCreated {
				t.Errorf("Expected one created event, got %v", got)
			}
		})
	}
}

func TestUpdateTodo(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	existing, err := s.Create(context.Background(), models.Todo{Text: "Buy milk"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
	}{
		{"toggle", "/api/todos/" + existing.ID.String(), map[string]any{"text": "Buy milk", "completed": true}, http.StatusOK},
		{"unknown id", "/api/todos/" + uuid.NewString(), map[string]any{"text": "x", "completed": false}, http.StatusNotFound},
		{"bad id", "/api/todos/not-a-uuid", map[string]any{"text": "x"}, http.StatusBadRequest},
		{"empty text", "/api/todos/" + existing.ID.String(), map[string]any{"text": ""}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			r := newTestRouter(s, WithTodoPublisher(pub))
			w := serve(r, newTestRequest(http.MethodPut, tt.path, tt.body))
			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (body %q)", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			todo := decodeTodo(t, w)
			if todo.ID != existing.ID || !todo.Completed {
				t.Errorf("Unexpected todo %+v", todo)
			}
			if got := pub.types(); len(got) != 1 || got[0] != queue.EventTodoUpdated {
				t.Errorf("Expected one updated event, got %v", got)
			}
		})
	}
}

func TestUpdateTodo_RejectDuplicates(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	milk, err := s.Create(context.Background(), models.Todo{Text: "Buy milk"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(context.Background(), models.Todo{Text: "Walk dog"}); err != nil {
		t.Fatal(err)
	}
	pub := &mockPublisher{}
	r := newTestRouter(s, WithTodoValidator(validation.NewValidator(30, true)), WithTodoPublisher(pub))
	path := "/api/todos/" + milk.ID.String()

	w := serve(r, newTestRequest(http.MethodPut, path, map[string]any{"text": " Walk dog "}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d (body %q)", w.Code, w.Body.String())
	}
	if msg := errorMessage(t, w); msg != "Duplicate todo text." {
		t.Errorf("Expected duplicate message, got %q", msg)
	}

	// Its own text is not a duplicate
	w = serve(r, newTestRequest(http.MethodPut, path, map[string]any{"text": "Buy milk", "completed": true}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	if got := pub.types(); len(got) != 1 || got[0] != queue.EventTodoUpdated {
		t.Errorf("Expected one updated event, got %v", got)
	}
}

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	existing, err := s.Create(context.Background(), models.Todo{Text: "Buy milk"})
	if err != nil {
		t.Fatal(err)
	}
	pub := &mockPublisher{}
	r := newTestRouter(s, WithTodoPublisher(pub))

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/todos/"+existing.ID.String(), nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/api/todos/"+existing.ID.String(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 on second delete, got %d", w.Code)
	}

	events := pub.types()
	if len(events) != 1 || events[0] != queue.EventTodoDeleted {
		t.Errorf("Expected one deleted event, got %v", events)
	}
}

func TestTodoHandler_StoreFailure(t *testing.T) {
	t.Parallel()

	r := newTestRouter(failingStore{err: todoerrors.NewStorage("list", errors.New("dial tcp: refused"))})
	id := uuid.NewString()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/todos", nil),
		newTestRequest(http.MethodPost, "/api/todos", map[string]any{"text": "x"}),
		newTestRequest(http.MethodPut, "/api/todos/"+id, map[string]any{"text": "x"}),
		httptest.NewRequest(http.MethodDelete, "/api/todos/"+id, nil),
	}
	for _, req := range requests {
		w := serve(r, req)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s %s: expected 500, got %d", req.Method, req.URL.Path, w.Code)
			continue
		}
		if msg := errorMessage(t, w); strings.Contains(msg, "refused") {
			t.Errorf("Internal error details leaked: %q", msg)
		}
	}
}

func TestTodoHandler_PublishFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	pub := &mockPublisher{err: errors.New("broker down")}
	r := newTestRouter(store.NewMemoryStore(), WithTodoPublisher(pub))

	w := serve(r, newTestRequest(http.MethodPost, "/api/todos", map[string]any{"text": "Buy milk"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 despite publish failure, got %d", w.Code)
	}
}

func TestTodoHandler_RequestTooLarge(t *testing.T) {
	t.Parallel()

	r := newTestRouter(store.NewMemoryStore())
	body := `{"text":"` + strings.Repeat("a", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/todos", strings.NewReader(body))
	w := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(w, req.Body, 16)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}

// The remote store and the handlers must agree on the wire format.
func TestRemoteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(newTestRouter(store.NewMemoryStore()))
	defer srv.Close()

	remote, err := store.NewRemoteStore(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	todos, err := remote.List(ctx)
	if err != nil || len(todos) != 0 {
		t.Fatalf("List() = %v, %v; want empty", todos, err)
	}

	id := uuid.New()
	created, err := remote.Create(ctx, models.Todo{ID: id, Text: "Buy milk"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != id || created.CreatedAt.IsZero() {
		t.Errorf("Create() = %+v, want id %s with created_at", created, id)
	}

	if _, err := remote.Create(ctx, models.Todo{ID: id, Text: "Buy milk"}); !todoerrors.Is(err, todoerrors.ErrConflict) {
		t.Errorf("Expected conflict on duplicate id, got %v", err)
	}
	if _, err := remote.Create(ctx, models.Todo{Text: " "}); !todoerrors.Is(err, todoerrors.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	created.Completed = true
	updated, err := remote.Update(ctx, *created)
	if err != nil || !updated.Completed {
		t.Fatalf("Update() = %+v, %v", updated, err)
	}

	if err := remote.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := remote.Delete(ctx, id); !todoerrors.Is(err, todoerrors.ErrNotFound) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
	if _, err := remote.Update(ctx, *created); !todoerrors.Is(err, todoerrors.ErrNotFound) {
		t.Errorf("Expected not found on update after delete, got %v", err)
	}
}
