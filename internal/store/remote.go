package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

const (
	todosPath            = "/api/todos"
	defaultRemoteTimeout = 10 * time.Second
	maxErrorBodyBytes    = 64 * 1024
)

// RemoteStore talks to a todo HTTP API served by cmd/server
type RemoteStore struct {
	baseURL string
	client  *http.Client
}

// RemoteOption configures a RemoteStore
type RemoteOption func(*RemoteStore)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteStore) {
		if c != nil {
			s.client = c
		}
	}
}

// NewRemoteStore creates a client for the API at baseURL
func NewRemoteStore(baseURL string, opts ...RemoteOption) (*RemoteStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote store requires a base URL")
	}
	s := &RemoteStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type remoteTodoRequest struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
}

type remoteErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *RemoteStore) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return todoerrors.NewStorage(op, fmt.Errorf("json marshal: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return todoerrors.NewStorage(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return todoerrors.NewStorage(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return todoerrors.NewStorage(op, fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	return remoteError(op, resp)
}

// remoteError maps an API error response back onto a coded error
func remoteError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var eb remoteErrorBody
	message := ""
	if json.Unmarshal(raw, &eb) == nil {
		message = eb.Message
		if message == "" {
			message = eb.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return todoerrors.NewValidation(message)
	case http.StatusNotFound:
		return &todoerrors.TodoError{
			Code:    todoerrors.ErrNotFound,
			Status:  http.StatusNotFound,
			Message: message,
			Op:      op,
		}
	case http.StatusConflict:
		return todoerrors.NewConflict(message)
	default:
		return todoerrors.NewStorage(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, message))
	}
}

// List fetches all todos
func (s *RemoteStore) List(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := s.do(ctx, "list", http.MethodGet, todosPath, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

// Create posts a new todo. A non-nil ID is sent so the server keeps it.
func (s *RemoteStore) Create(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	req := remoteTodoRequest{Text: todo.Text, Completed: todo.Completed}
	if todo.ID != uuid.Nil {
		id := todo.ID
		req.ID = &id
	}
	var created models.Todo
	if err := s.do(ctx, "create", http.MethodPost, todosPath, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update puts the new text and completed flag
func (s *RemoteStore) Update(ctx context.Context, todo models.Todo) (*models.Todo, error) {
	req := remoteTodoRequest{Text: todo.Text, Completed: todo.Completed}
	var updated models.Todo
	if err := s.do(ctx, "update", http.MethodPut, todosPath+"/"+todo.ID.String(), req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a todo
func (s *RemoteStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, "delete", http.MethodDelete, todosPath+"/"+id.String(), nil, nil)
}

// Ping checks the server's health endpoint
func (s *RemoteStore) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", http.MethodGet, "/healthz", nil, nil)
}
