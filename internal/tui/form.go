package tui

import (
	"context"

	"github.com/benvon/simple-todo/internal/actions"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const formPlaceholder = "Add a new task"

// addResultMsg reports the outcome of a submitted form
type addResultMsg struct {
	err error
}

// formModel is the single-line input that adds todos
type formModel struct {
	input   textinput.Model
	pending bool
}

func newForm(maxLength int) formModel {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = formPlaceholder
	in.CharLimit = maxLength
	in.Cursor.SetMode(cursor.CursorStatic)
	return formModel{input: in}
}

func (f *formModel) focus() { f.input.Focus() }
func (f *formModel) blur()  { f.input.Blur() }

// Value is the current, unsubmitted text
func (f formModel) Value() string { return f.input.Value() }

// update handles a key while the form has focus
func (f formModel) update(ctx context.Context, svc *actions.Service, msg tea.KeyMsg) (formModel, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if f.pending {
			return f, nil
		}
		f.pending = true
		return f, addCmd(ctx, svc, f.input.Value())
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// resolve clears the input on success and keeps it for correction on failure
func (f formModel) resolve(msg addResultMsg) formModel {
	f.pending = false
	if msg.err == nil {
		f.input.Reset()
	}
	return f
}

func (f formModel) view(theme Theme, focused bool) string {
	style := theme.Panel
	if focused {
		style = theme.Focused
	}
	line := f.input.View()
	if f.pending {
		line += theme.Muted.Render("  saving...")
	}
	return style.Render(line)
}

func addCmd(ctx context.Context, svc *actions.Service, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := svc.Add(ctx, text)
		return addResultMsg{err: err}
	}
}
