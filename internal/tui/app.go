// Package tui is the terminal front end: an input form above a navigable
// list, both driven by an actions.Service.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/benvon/simple-todo/internal/actions"
	"github.com/benvon/simple-todo/internal/models"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	title = "Todo List"
	// noticeTTL is how long a notification stays on screen
	noticeTTL = 3 * time.Second
)

// Options configures the terminal UI
type Options struct {
	RefreshInterval time.Duration
	Dark            bool
	Logger          *zap.Logger
}

type focusArea int

const (
	focusForm focusArea = iota
	focusList
)

type (
	// changedMsg signals that the service collection changed
	changedMsg struct{}
	// loadedMsg carries the result of a load or manual refresh
	loadedMsg struct{ err error }
	noticeMsg actions.Notification
	// clearNoticeMsg expires the notice with the same sequence number
	clearNoticeMsg struct{ seq int }
)

// Model is the root bubbletea model
type Model struct {
	ctx    context.Context
	svc    *actions.Service
	logger *zap.Logger
	theme  Theme
	focus  focusArea
	form   formModel
	list   listModel

	todos   []models.Todo
	loaded  bool
	loadErr error

	notice    *actions.Notification
	noticeSeq int
	width     int
}

// New creates the root model. The form starts focused.
func New(ctx context.Context, svc *actions.Service, opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxLength := svc.Validator().MaxLength
	m := Model{
		ctx:    ctx,
		svc:    svc,
		logger: log,
		theme:  NewTheme(opts.Dark),
		form:   newForm(maxLength),
		list:   newList(maxLength),
	}
	m.form.focus()
	return m.sync()
}

// Init loads the collection
func (m Model) Init() tea.Cmd {
	return loadCmd(m.ctx, m.svc)
}

// sync copies the service's visible state into the model
func (m Model) sync() Model {
	m.todos = m.svc.Todos()
	m.loaded = m.svc.Loaded()
	m.loadErr = m.svc.LoadError()
	m.list = m.list.clamp(len(m.todos))
	return m
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case changedMsg:
		return m.sync(), nil

	case loadedMsg:
		if msg.err != nil {
			m.logger.Debug("tui_load_failed", zap.Error(msg.err))
		}
		return m.sync(), nil

	case addResultMsg:
		m.form = m.form.resolve(msg)
		return m.sync(), nil

	case listResultMsg:
		m.list = m.list.resolve(msg)
		return m.sync(), nil

	case noticeMsg:
		n := actions.Notification(msg)
		m.notice = &n
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.focus == focusForm {
		if key.Matches(msg, keys.SwitchFocus) {
			return m.switchFocus(), nil
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.update(m.ctx, m.svc, msg)
		return m, cmd
	}

	if !m.list.capturesKeys() {
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.SwitchFocus):
			return m.switchFocus(), nil
		case key.Matches(msg, keys.Theme):
			m.theme = m.theme.Toggle()
			return m, nil
		case key.Matches(msg, keys.Refresh):
			return m, refreshCmd(m.ctx, m.svc)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.update(m.ctx, m.svc, m.todos, msg)
	return m, cmd
}

func (m Model) switchFocus() Model {
	if m.focus == focusForm {
		m.focus = focusList
		m.form.blur()
	} else {
		m.focus = focusForm
		m.form.focus()
	}
	return m
}

// View implements tea.Model
func (m Model) View() string {
	sections := []string{
		m.theme.Title.Render(title),
		m.form.view(m.theme, m.focus == focusForm),
		m.list.view(m.theme, m.todos, m.loaded, m.loadErr, m.focus == focusList),
		m.noticeView(),
		m.theme.Muted.Render(m.help()),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) noticeView() string {
	if m.notice == nil {
		return ""
	}
	switch m.notice.Level {
	case actions.LevelSuccess:
		return m.theme.Success.Render(m.notice.Message)
	case actions.LevelError:
		return m.theme.Error.Render(m.notice.Message)
	default:
		return m.theme.Info.Render(m.notice.Message)
	}
}

func (m Model) help() string {
	switch {
	case m.focus == focusForm:
		return helpLine(keys.Submit, keys.SwitchFocus, keys.ForceQuit)
	case m.list.editor.Active():
		return helpLine(keys.Submit, keys.Cancel)
	case m.list.confirming != uuid.Nil:
		return "y confirm  any other key cancels"
	default:
		return strings.Join([]string{
			helpLine(keys.Up, keys.Down, keys.Toggle, keys.Edit, keys.Delete),
			helpLine(keys.Refresh, keys.Theme, keys.SwitchFocus, keys.Quit),
		}, "\n")
	}
}

func loadCmd(ctx context.Context, svc *actions.Service) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: svc.Load(ctx)}
	}
}

func refreshCmd(ctx context.Context, svc *actions.Service) tea.Cmd {
	return func() tea.Msg {
		_, err := svc.Refresh(ctx)
		return loadedMsg{err: err}
	}
}

// Run starts the terminal UI and blocks until the user quits or ctx is done.
// The service's observer events are forwarded into the program and the
// collection is refreshed every opts.RefreshInterval.
func Run(ctx context.Context, svc *actions.Service, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(ctx, svc, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	svc.Observe(actions.ObserverFuncs{
		OnChange: func([]models.Todo) { p.Send(changedMsg{}) },
		OnNotify: func(n actions.Notification) { p.Send(noticeMsg(n)) },
	})
	svc.Start(ctx, opts.RefreshInterval)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
