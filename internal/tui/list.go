package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/simple-todo/internal/actions"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// Texts shown instead of the list
const (
	EmptyText   = "No tasks available. Add a new one to get started!"
	ErrorText   = "Oops! Something went wrong. Please try again later."
	LoadingText = "Loading..."
)

// RenderOptions controls RenderList
type RenderOptions struct {
	Theme Theme
	// Cursor marks the selected row; -1 for none
	Cursor int
	// Numbered prefixes rows with their 1-based position
	Numbered bool
	Loaded   bool
	LoadErr  error
}

// RenderList renders todos with their completed state. The error state wins
// over the list, and an empty list shows the empty state.
func RenderList(todos []models.Todo, opts RenderOptions) string {
	switch {
	case opts.LoadErr != nil:
		return opts.Theme.Error.Render(ErrorText)
	case !opts.Loaded:
		return opts.Theme.Muted.Render(LoadingText)
	case len(todos) == 0:
		return opts.Theme.Muted.Render(EmptyText)
	}

	width := len(fmt.Sprint(len(todos)))
	var b strings.Builder
	for i, todo := range todos {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderRow(i, todo, opts, width))
	}
	return b.String()
}

func renderRow(i int, todo models.Todo, opts RenderOptions, width int) string {
	prefix := "  "
	if i == opts.Cursor {
		prefix = opts.Theme.Selected.Render("> ")
	}
	if opts.Numbered {
		prefix += fmt.Sprintf("%*d. ", width, i+1)
	}

	box, text := "[ ]", todo.Text
	if todo.Completed {
		box = opts.Theme.Check.Render("[x]")
		text = opts.Theme.Done.Render(text)
	} else if i == opts.Cursor {
		text = opts.Theme.Selected.Render(text)
	}
	return prefix + box + " " + text
}

// listResultMsg reports the outcome of a list action
type listResultMsg struct {
	op  string
	id  uuid.UUID
	err error
}

// listModel is the navigable todo list with inline edit and delete confirmation
type listModel struct {
	cursor     int
	confirming uuid.UUID
	editor     actions.Editor
	editInput  textinput.Model
}

func newList(maxLength int) listModel {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = maxLength
	in.Cursor.SetMode(cursor.CursorStatic)
	return listModel{editInput: in}
}

// clamp keeps the cursor on an existing row
func (l listModel) clamp(n int) listModel {
	if l.cursor >= n {
		l.cursor = n - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	return l
}

func (l listModel) selected(todos []models.Todo) (models.Todo, bool) {
	if l.cursor < 0 || l.cursor >= len(todos) {
		return models.Todo{}, false
	}
	return todos[l.cursor], true
}

// capturesKeys reports whether the list needs every key (editing or confirming)
func (l listModel) capturesKeys() bool {
	return l.editor.Active() || l.confirming != uuid.Nil
}

// update handles a key while the list has focus
func (l listModel) update(ctx context.Context, svc *actions.Service, todos []models.Todo, msg tea.KeyMsg) (listModel, tea.Cmd) {
	if l.editor.Active() {
		return l.updateEditing(ctx, svc, msg)
	}

	if l.confirming != uuid.Nil {
		id := l.confirming
		l.confirming = uuid.Nil
		if key.Matches(msg, keys.Confirm) {
			return l, deleteCmd(ctx, svc, id)
		}
		return l, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		if l.cursor > 0 {
			l.cursor--
		}
	case key.Matches(msg, keys.Down):
		if l.cursor < len(todos)-1 {
			l.cursor++
		}
	case key.Matches(msg, keys.Toggle):
		if todo, ok := l.selected(todos); ok {
			return l, toggleCmd(ctx, svc, todo.ID)
		}
	case key.Matches(msg, keys.Delete):
		if todo, ok := l.selected(todos); ok {
			l.confirming = todo.ID
		}
	case key.Matches(msg, keys.Edit):
		if todo, ok := l.selected(todos); ok && l.editor.Begin(todo) == nil {
			l.editInput.SetValue(todo.Text)
			l.editInput.CursorEnd()
			l.editInput.Focus()
		}
	}
	return l, nil
}

func (l listModel) updateEditing(ctx context.Context, svc *actions.Service, msg tea.KeyMsg) (listModel, tea.Cmd) {
	if l.editor.State() == actions.EditSaving {
		return l, nil
	}
	switch {
	case key.Matches(msg, keys.Submit):
		if !l.editor.Changed() {
			// nothing to save
			if l.editor.Cancel() == nil {
				l.editInput.Blur()
				l.editInput.Reset()
			}
			return l, nil
		}
		id, text, err := l.editor.Submit()
		if err != nil {
			return l, nil
		}
		return l, editCmd(ctx, svc, id, text)
	case key.Matches(msg, keys.Cancel):
		if l.editor.Cancel() == nil {
			l.editInput.Blur()
			l.editInput.Reset()
		}
		return l, nil
	}

	var cmd tea.Cmd
	l.editInput, cmd = l.editInput.Update(msg)
	if l.editInput.Value() != l.editor.Draft() {
		_ = l.editor.SetDraft(l.editInput.Value())
	}
	return l, cmd
}

// resolve applies an action result to the edit state machine
func (l listModel) resolve(msg listResultMsg) listModel {
	if msg.op != opEdit || l.editor.State() != actions.EditSaving || l.editor.ID() != msg.id {
		return l
	}
	_ = l.editor.Resolve(msg.err)
	if !l.editor.Active() {
		l.editInput.Blur()
		l.editInput.Reset()
	}
	return l
}

func (l listModel) view(theme Theme, todos []models.Todo, loaded bool, loadErr error, focused bool) string {
	cursorRow := -1
	if focused {
		cursorRow = l.cursor
	}
	body := RenderList(todos, RenderOptions{Theme: theme, Cursor: cursorRow, Loaded: loaded, LoadErr: loadErr})

	if l.editor.Active() {
		status := ""
		switch l.editor.State() {
		case actions.EditSaving:
			status = theme.Muted.Render("  saving...")
		case actions.EditError:
			status = theme.Error.Render("  not saved, enter to retry")
		}
		body += "\n\n" + theme.Info.Render("Edit: ") + l.editInput.View() + status
	}
	if l.confirming != uuid.Nil {
		for _, t := range todos {
			if t.ID == l.confirming {
				body += "\n\n" + theme.Error.Render(fmt.Sprintf("Delete %q? (y/n)", t.Text))
				break
			}
		}
	}

	if loaded && loadErr == nil && len(todos) > 0 {
		body += "\n\n" + theme.Muted.Render(fmt.Sprintf("%d of %d completed", models.CountCompleted(todos), len(todos)))
	}

	style := theme.Panel
	if focused {
		style = theme.Focused
	}
	return style.Render(body)
}

const (
	opToggle = "toggle"
	opEdit   = "edit"
	opDelete = "delete"
)

func toggleCmd(ctx context.Context, svc *actions.Service, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		return listResultMsg{op: opToggle, id: id, err: svc.Toggle(ctx, id)}
	}
}

func editCmd(ctx context.Context, svc *actions.Service, id uuid.UUID, text string) tea.Cmd {
	return func() tea.Msg {
		return listResultMsg{op: opEdit, id: id, err: svc.Edit(ctx, id, text)}
	}
}

func deleteCmd(ctx context.Context, svc *actions.Service, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		return listResultMsg{op: opDelete, id: id, err: svc.Delete(ctx, id)}
	}
}
