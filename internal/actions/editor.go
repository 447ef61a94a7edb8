package actions

import (
	"errors"

	"github.com/benvon/simple-todo/internal/models"
	"github.com/google/uuid"
)

// EditState is the phase of an inline edit
type EditState int

const (
	EditViewing EditState = iota
	EditEditing
	EditSaving
	EditError
)

func (s EditState) String() string {
	switch s {
	case EditViewing:
		return "viewing"
	case EditEditing:
		return "editing"
	case EditSaving:
		return "saving"
	case EditError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an Editor method is called in the wrong state
var ErrInvalidTransition = errors.New("invalid edit transition")

// Editor tracks one inline edit:
//
//	viewing -> editing -> saving -> viewing
//	                          \-> error -> editing
//
// Cancel returns to viewing from editing or error.
type Editor struct {
	state    EditState
	id       uuid.UUID
	original string
	draft    string
	err      error
}

// State returns the current phase
func (e *Editor) State() EditState { return e.state }

// ID returns the todo being edited, uuid.Nil when viewing
func (e *Editor) ID() uuid.UUID { return e.id }

// Draft returns the text being edited
func (e *Editor) Draft() string { return e.draft }

// Err returns the failure that moved the editor into the error state
func (e *Editor) Err() error { return e.err }

// Active reports whether an edit is in progress
func (e *Editor) Active() bool { return e.state != EditViewing }

// Begin starts editing todo
func (e *Editor) Begin(todo models.Todo) error {
	if e.state != EditViewing {
		return ErrInvalidTransition
	}
	e.state = EditEditing
	e.id = todo.ID
	e.original = todo.Text
	e.draft = todo.Text
	e.err = nil
	return nil
}

// SetDraft updates the pending text. Typing after a failure resumes editing.
func (e *Editor) SetDraft(text string) error {
	switch e.state {
	case EditEditing:
	case EditError:
		e.state = EditEditing
		e.err = nil
	default:
		return ErrInvalidTransition
	}
	e.draft = text
	return nil
}

// Submit moves to saving and returns what should be persisted
func (e *Editor) Submit() (uuid.UUID, string, error) {
	if e.state != EditEditing && e.state != EditError {
		return uuid.Nil, "", ErrInvalidTransition
	}
	e.state = EditSaving
	e.err = nil
	return e.id, e.draft, nil
}

// Resolve finishes a save: nil returns to viewing, an error keeps the draft
func (e *Editor) Resolve(err error) error {
	if e.state != EditSaving {
		return ErrInvalidTransition
	}
	if err != nil {
		e.state = EditError
		e.err = err
		return nil
	}
	e.reset()
	return nil
}

// Cancel abandons the edit
func (e *Editor) Cancel() error {
	if e.state == EditSaving {
		return ErrInvalidTransition
	}
	e.reset()
	return nil
}

// Changed reports whether the draft differs from the text the edit began with
func (e *Editor) Changed() bool {
	return e.draft != e.original
}

func (e *Editor) reset() {
	e.state = EditViewing
	e.id = uuid.Nil
	e.original = ""
	e.draft = ""
	e.err = nil
}
