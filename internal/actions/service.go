// Package actions owns the visible todo collection and applies every
// mutation optimistically: the local change is visible immediately, the
// store call runs, and the change is rolled back if the store fails.
package actions

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	todoerrors "github.com/benvon/simple-todo/internal/errors"
	"github.com/benvon/simple-todo/internal/logger"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/benvon/simple-todo/internal/store"
	"github.com/benvon/simple-todo/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is how often Start re-fetches the authoritative list
const DefaultRefreshInterval = 5 * time.Second

// Service mediates between the views and a store.Store
type Service struct {
	store     store.Store
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	todos   []models.Todo
	loaded  bool
	loadErr error

	locks *idLocks
	// inflight counts running mutations; generation increments when one starts
	inflight   atomic.Int64
	generation atomic.Uint64

	// emitMu keeps observer callbacks in the order the state changed
	emitMu    sync.Mutex
	obsMu     sync.RWMutex
	observers []Observer
}

// Option configures a Service
type Option func(*Service)

// WithValidator replaces the default validator
func WithValidator(v *validation.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithLogger sets the logger used for notifications and failures
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers an observer at construction time
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewService creates a Service over st. Call Load before using the collection.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		validator: validation.NewValidator(validation.DefaultMaxTextLength, false),
		logger:    zap.NewNop(),
		now:       time.Now,
		todos:     []models.Todo{},
		locks:     newIDLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observe registers an observer for subsequent changes
func (s *Service) Observe(o Observer) {
	if o == nil {
		return
	}
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Validator returns the validator used for add and edit
func (s *Service) Validator() *validation.Validator {
	return s.validator
}

// Todos returns a snapshot of the visible collection
func (s *Service) Todos() []models.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Clone(s.todos)
}

// Loaded reports whether a fetch has completed successfully at least once
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// LoadError returns the error of the most recent list fetch, nil if it succeeded
func (s *Service) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// InFlight returns the number of mutations currently running
func (s *Service) InFlight() int {
	return int(s.inflight.Load())
}

// Load fetches the authoritative list and replaces the visible collection
func (s *Service) Load(ctx context.Context) error {
	todos, err := s.store.List(ctx)
	s.mu.Lock()
	if err != nil {
		s.loadErr = err
	} else {
		s.todos = todos
		s.loaded = true
		s.loadErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed_to_load_todos", zap.String("error", logger.SanitizeError(err)))
	} else {
		s.logger.Debug("todos_loaded", zap.Int("count", len(todos)))
	}
	s.emit()
	return err
}

// Refresh re-fetches the list in the background. It is skipped while any
// mutation is in flight, and its result is dropped if a mutation started
// during the fetch. Returns whether the fetched list was applied.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	if s.inflight.Load() > 0 {
		return false, nil
	}
	gen := s.generation.Load()

	todos, err := s.store.List(ctx)

	s.mu.Lock()
	if s.generation.Load() != gen || s.inflight.Load() > 0 {
		s.mu.Unlock()
		s.logger.Debug("refresh_discarded")
		return false, nil
	}
	if err != nil {
		s.loadErr = err
	} else {
		s.todos = todos
		s.loaded = true
		s.loadErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed_to_refresh_todos", zap.String("error", logger.SanitizeError(err)))
	}
	s.emit()
	return err == nil, err
}

// Start refreshes the collection every interval until ctx is done.
// A non-positive interval disables background refresh.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.Refresh(ctx)
			}
		}
	}()
}

// begin marks a mutation as started and takes the per-id lock
func (s *Service) begin(ctx context.Context, id uuid.UUID) error {
	s.inflight.Add(1)
	s.generation.Add(1)
	if err := s.locks.acquire(ctx, id); err != nil {
		s.inflight.Add(-1)
		return err
	}
	return nil
}

func (s *Service) end(id uuid.UUID) {
	s.locks.release(id)
	s.inflight.Add(-1)
}

// Add validates text, appends a new todo optimistically and persists it
func (s *Service) Add(ctx context.Context, text string) (models.Todo, error) {
	clean, err := s.validator.Check(text, s.Todos())
	if err != nil {
		s.notify(LevelError, todoerrors.Reason(err))
		return models.Todo{}, err
	}

	todo := models.Todo{ID: uuid.New(), Text: clean, CreatedAt: s.now().UTC()}
	if err := s.begin(ctx, todo.ID); err != nil {
		return models.Todo{}, err
	}
	defer s.end(todo.ID)

	s.mu.Lock()
	s.todos = append(s.todos, todo)
	s.mu.Unlock()
	s.emit()

	created, err := s.store.Create(ctx, todo)
	if err != nil {
		s.mu.Lock()
		s.todos = without(s.todos, todo.ID)
		s.mu.Unlock()
		s.emit()

		s.logger.Error("failed_to_create_todo",
			zap.String("todo_id", todo.ID.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		s.notify(LevelError, MsgAddFailed)
		return models.Todo{}, todoerrors.NewStorage("create", err)
	}

	s.reconcile(todo.ID, *created)
	s.notify(LevelSuccess, MsgAdded)
	return *created, nil
}

// Toggle flips the completed flag of id. Unknown ids are ignored.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, id); err != nil {
		return err
	}
	defer s.end(id)

	// Read the current value only once the lock is held so queued toggles compose.
	s.mu.Lock()
	idx := models.IndexOf(s.todos, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	prev := s.todos[idx]
	s.todos[idx].Completed = !prev.Completed
	next := s.todos[idx]
	s.mu.Unlock()
	s.emit()

	updated, err := s.store.Update(ctx, next)
	if err != nil {
		return s.rollbackUpdate(err, prev, "failed_to_toggle_todo", MsgToggleFailed)
	}

	s.reconcile(id, *updated)
	s.notify(LevelSuccess, MsgToggled)
	return nil
}

// Edit replaces the text of id. Unknown ids are ignored.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, text string) error {
	current := s.Todos()
	others := make([]models.Todo, 0, len(current))
	for _, t := range current {
		if t.ID != id {
			others = append(others, t)
		}
	}
	clean, err := s.validator.Check(text, others)
	if err != nil {
		s.notify(LevelError, todoerrors.Reason(err))
		return err
	}

	if err := s.begin(ctx, id); err != nil {
		return err
	}
	defer s.end(id)

	s.mu.Lock()
	idx := models.IndexOf(s.todos, id)
	if idx < 0 || s.todos[idx].Text == clean {
		s.mu.Unlock()
		return nil
	}
	prev := s.todos[idx]
	s.todos[idx].Text = clean
	next := s.todos[idx]
	s.mu.Unlock()
	s.emit()

	updated, err := s.store.Update(ctx, next)
	if err != nil {
		return s.rollbackUpdate(err, prev, "failed_to_edit_todo", MsgEditFailed)
	}

	s.reconcile(id, *updated)
	s.notify(LevelSuccess, MsgEdited)
	return nil
}

// rollbackUpdate restores prev after a failed update. A store NOT_FOUND means
// the record is gone: it is dropped locally and reported as info only.
func (s *Service) rollbackUpdate(err error, prev models.Todo, event, message string) error {
	if todoerrors.Is(err, todoerrors.ErrNotFound) {
		s.mu.Lock()
		s.todos = without(s.todos, prev.ID)
		s.mu.Unlock()
		s.emit()
		s.logger.Info("todo_gone_from_store", zap.String("todo_id", prev.ID.String()))
		s.notify(LevelInfo, MsgNoLongerThere)
		return nil
	}

	s.mu.Lock()
	if idx := models.IndexOf(s.todos, prev.ID); idx >= 0 {
		s.todos[idx] = prev
	}
	s.mu.Unlock()
	s.emit()

	s.logger.Error(event,
		zap.String("todo_id", prev.ID.String()),
		zap.String("error", logger.SanitizeError(err)),
	)
	s.notify(LevelError, message)
	return todoerrors.NewStorage("update", err)
}

// Delete removes id. Unknown ids are ignored; a store NOT_FOUND counts as deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.begin(ctx, id); err != nil {
		return err
	}
	defer s.end(id)

	s.mu.Lock()
	idx := models.IndexOf(s.todos, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	prev := s.todos[idx]
	s.todos = without(s.todos, id)
	s.mu.Unlock()
	s.emit()

	err := s.store.Delete(ctx, id)
	if err != nil && !todoerrors.Is(err, todoerrors.ErrNotFound) {
		s.mu.Lock()
		s.todos = insertAt(s.todos, idx, prev)
		s.mu.Unlock()
		s.emit()

		s.logger.Error("failed_to_delete_todo",
			zap.String("todo_id", id.String()),
			zap.String("error", logger.SanitizeError(err)),
		)
		s.notify(LevelError, MsgDeleteFailed)
		return todoerrors.NewStorage("delete", err)
	}

	s.notify(LevelSuccess, MsgDeleted)
	return nil
}

// reconcile replaces the local record localID with the stored one
func (s *Service) reconcile(localID uuid.UUID, stored models.Todo) {
	s.mu.Lock()
	idx := models.IndexOf(s.todos, localID)
	changed := idx >= 0 && s.todos[idx] != stored
	if changed {
		s.todos[idx] = stored
	}
	s.mu.Unlock()
	if changed {
		s.emit()
	}
}

func (s *Service) observerList() []Observer {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	out := make([]Observer, len(s.observers))
	copy(out, s.observers)
	return out
}

func (s *Service) emit() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	snapshot := s.Todos()
	for _, o := range s.observerList() {
		o.TodosChanged(models.Clone(snapshot))
	}
}

func (s *Service) notify(level Level, message string) {
	switch level {
	case LevelError:
		s.logger.Warn("todo_notification", zap.String("level", string(level)), zap.String("message", message))
	default:
		s.logger.Info("todo_notification", zap.String("level", string(level)), zap.String("message", message))
	}

	n := Notification{Level: level, Message: message, Time: s.now()}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for _, o := range s.observerList() {
		o.Notify(n)
	}
}

func without(list []models.Todo, id uuid.UUID) []models.Todo {
	out := make([]models.Todo, 0, len(list))
	for _, t := range list {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func insertAt(list []models.Todo, idx int, todo models.Todo) []models.Todo {
	if idx > len(list) {
		idx = len(list)
	}
	out := make([]models.Todo, 0, len(list)+1)
	out = append(out, list[:idx]...)
	out = append(out, todo)
	out = append(out, list[idx:]...)
	return out
}
