package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/queue"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/benvon/simple-todo/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TodoHandler serves the todo collection over HTTP
type TodoHandler struct {
	store     store.Store
	validator *validation.Validator
	publisher queue.Publisher
	logger    *zap.Logger
}

// TodoHandlerOption configures optional dependencies for TodoHandler
type TodoHandlerOption func(*TodoHandler)

// WithTodoValidator sets the validator used for incoming text
func WithTodoValidator(v *validation.Validator) TodoHandlerOption {
	return func(h *TodoHandler) {
		if v != nil {
			h.validator = v
		}
	}
}

// WithTodoPublisher sets the publisher used for change events
func WithTodoPublisher(p queue.Publisher) TodoHandlerOption {
	return func(h *TodoHandler) {
		if p != nil {
			h.publisher = p
		}
	}
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(s store.Store, log *zap.Logger, opts ...TodoHandlerOption) *TodoHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &TodoHandler{
		store:     s,
		validator: validation.NewValidator(validation.DefaultMaxTextLength, false),
		publisher: queue.NopPublisher{},
		logger:    log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateTodoRequest represents the request body for creating a todo.
// A client-supplied id is kept so optimistic clients can reconcile.
type CreateTodoRequest struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
}

// UpdateTodoRequest represents the request body for updating a todo
type UpdateTodoRequest struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// RegisterRoutes registers todo routes on a /api/todos subrouter
func (h *TodoHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTodos).Methods("GET")
	r.HandleFunc("", h.CreateTodo).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateTodo).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteTodo).Methods("DELETE")
}

// ListTodos returns every todo as a plain JSON array
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.List(r.Context())
	if err != nil {
		h.respondStoreError(w, "list", uuid.Nil, err)
		return
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// CreateTodo creates a new todo
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	var existing []models.Todo
	if h.validator.RejectDuplicates {
		todos, err := h.store.List(ctx)
		if err != nil {
			h.respondStoreError(w, "create", uuid.Nil, err)
			return
		}
		existing = todos
	}

	text, err := h.validator.Check(req.Text, existing)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", todoerrors.Reason(err))
		return
	}

	todo := models.Todo{Text: text, Completed: req.Completed}
	if req.ID != nil {
		todo.ID = *req.ID
	}

	created, err := h.store.Create(ctx, todo)
	if err != nil {
		h.respondStoreError(w, "create", todo.ID, err)
		return
	}

	h.publish(ctx, queue.EventTodoCreated, *created)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTodo replaces text and completed of an existing todo
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	todo := models.Todo{ID: id, Text: req.Text, Completed: req.Completed}
	if err := h.validator.CheckRecord(&todo); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", todoerrors.Reason(err))
		return
	}

	ctx := r.Context()
	if h.validator.RejectDuplicates {
		todos, err := h.store.List(ctx)
		if err != nil {
			h.respondStoreError(w, "update", id, err)
			return
		}
		others := make([]models.Todo, 0, len(todos))
		for _, t := range todos {
			if t.ID != id {
				others = append(others, t)
			}
		}
		if _, err := h.validator.Check(todo.Text, others); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", todoerrors.Reason(err))
			return
		}
	}

	updated, err := h.store.Update(ctx, todo)
	if err != nil {
		h.respondStoreError(w, "update", id, err)
		return
	}

	h.publish(ctx, queue.EventTodoUpdated, *updated)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTodo deletes a todo
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.store.Delete(ctx, id); err != nil {
		h.respondStoreError(w, "delete", id, err)
		return
	}

	h.publish(ctx, queue.EventTodoDeleted, models.Todo{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// publish emits a change event. Failures never fail the request.
func (h *TodoHandler) publish(ctx context.Context, eventType queue.EventType, todo models.Todo) {
	event := queue.NewEvent(eventType, todo)
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed_to_publish_todo_event",
			zap.String("event_type", string(eventType)),
			zap.String("todo_id", todo.ID.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		return
	}
	h.logger.Debug("published_todo_event",
		zap.String("event_type", string(eventType)),
		zap.String("event_id", event.ID.String()),
		zap.String("todo_id", todo.ID.String()),
	)
}

func (h *TodoHandler) respondStoreError(w http.ResponseWriter, op string, id uuid.UUID, err error) {
	status := todoerrors.StatusOf(err)
	switch status {
	case http.StatusNotFound:
		respondJSONError(w, status, "Not Found", "Todo not found")
	case http.StatusConflict:
		respondJSONError(w, status, "Conflict", todoerrors.Reason(err))
	case http.StatusBadRequest:
		respondJSONError(w, status, "Bad Request", todoerrors.Reason(err))
	default:
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("error", logger.SanitizeError(err)),
		}
		if id != uuid.Nil {
			fields = append(fields, zap.String("todo_id", id.String()))
		}
		h.logger.Error("failed_to_"+op+"_todo", fields...)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Storage unavailable")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil || id == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid todo ID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}
