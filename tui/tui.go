// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban deal board plus client and deal lists kept live by repository events
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/live"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
)

// EntityType represents the active tab, or the kind of record being viewed
type EntityType int

const (
	EntityBoard EntityType = iota
	EntityClients
	EntityDeals
)

var tabNames = []string{"Board", "Clients", "Deals"}

var errReadOnly = errors.New("read-only session: sign in as admin to make changes")

type Options struct {
	AppName   string
	Themes    *theme.Manager
	Session   *auth.Session
	LoadDelay time.Duration
}

type (
	loadedMsg       struct{ err error }
	dataChangedMsg  struct{ err error }
	themeChangedMsg struct{ theme theme.Theme }
	mutationMsg     struct {
		status string
		err    error
		// back returns to the main list once the mutation succeeds
		back bool
		// focus moves the board cursor onto this deal
		focus string
	}
	graphMsg struct {
		dot string
		err error
	}
)

// Model is the main bubbletea model
type Model struct {
	ctx     context.Context
	repo    *db.Repository
	clients *live.Clients
	deals   *live.Deals
	themes  *theme.Manager

	appName  string
	session  *auth.Session
	theme    theme.Theme
	styles   styles
	viewMode ViewMode
	tab      EntityType

	// Board state
	boardCol int
	boardRow int

	// List state
	selectedRow int

	// Detail, edit and delete state
	selectedKind EntityType
	selectedID   string
	form         *form

	// Graph state
	graph     viewport.Model
	graphFrom ViewMode

	spinner spinner.Model
	loaded  bool
	status  string
	err     error
	width   int
	height  int
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, repo *db.Repository, opts Options) Model {
	delay := opts.LoadDelay
	if delay < 0 {
		delay = 0
	}

	t := theme.Light
	if opts.Themes != nil {
		if cur, err := opts.Themes.Current(ctx); err == nil {
			t = cur
		}
	}
	appName := opts.AppName
	if appName == "" {
		appName = "KionCRM"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		repo:     repo,
		clients:  live.NewClients(repo, live.WithLoadDelay(delay)),
		deals:    live.NewDeals(repo, live.WithLoadDelay(delay)),
		themes:   opts.Themes,
		appName:  appName,
		session:  opts.Session,
		theme:    t,
		styles:   newStyles(t),
		viewMode: ViewList,
		tab:      EntityBoard,
		spinner:  sp,
		width:    80,
		height:   24,
	}
}

// Run starts the program and keeps the lists in sync with repository and
// theme changes until the user quits or ctx ends.
func Run(ctx context.Context, repo *db.Repository, opts Options) error {
	m := NewModel(ctx, repo, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	stopClients := m.clients.Follow(ctx, func(err error) { p.Send(dataChangedMsg{err: err}) })
	defer stopClients()
	stopDeals := m.deals.Follow(ctx, func(err error) { p.Send(dataChangedMsg{err: err}) })
	defer stopDeals()
	if opts.Themes != nil {
		stopTheme := opts.Themes.Subscribe(func(t theme.Theme) { p.Send(themeChangedMsg{theme: t}) })
		defer stopTheme()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) canWrite() bool {
	return m.session.CanWrite()
}

// busy reports whether a spinner is on screen.
func (m Model) busy() bool {
	switch {
	case !m.loaded:
		return true
	case m.viewMode == ViewGraph:
		return m.graph.TotalLineCount() == 0
	case m.form != nil:
		return m.form.saving
	}
	return false
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		g, ctx := errgroup.WithContext(m.ctx)
		g.Go(func() error { return m.clients.Load(ctx) })
		g.Go(func() error { return m.deals.Load(ctx) })
		return loadedMsg{err: g.Wait()}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.graph.Width = msg.Width
		m.graph.Height = max(msg.Height-6, 3)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.loaded = true
		m.err = msg.err
		return m, nil

	case dataChangedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.clampCursors()
		return m, nil

	case themeChangedMsg:
		m.theme = msg.theme
		m.styles = newStyles(msg.theme)
		return m, nil

	case mutationMsg:
		m.err = msg.err
		if m.form != nil {
			m.form.saving = false
			var fe models.FieldErrors
			if errors.As(msg.err, &fe) {
				m.form.errs = fe
			}
		}
		if msg.err == nil {
			m.status = msg.status
			if msg.back {
				m.viewMode = ViewList
				m.form = nil
			}
			if msg.focus != "" {
				m.focusDeal(msg.focus)
			}
		}
		m.clampCursors()
		return m, nil

	case graphMsg:
		if msg.err != nil {
			m.err = msg.err
			m.viewMode = ViewList
			return m, nil
		}
		m.graph = viewport.New(m.width, max(m.height-6, 3))
		m.graph.SetContent(msg.dot)
		return m, nil
	}

	// Cursor blink and similar messages belong to the focused input.
	if m.viewMode == ViewEdit && m.form != nil {
		f := m.form
		var cmd tea.Cmd
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if !m.loaded {
		return m.spinner.View() + " Loading " + m.appName + "...\n"
	}
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// Text entry owns every other key while a form is open.
	if m.viewMode == ViewEdit {
		return m.handleEditKeys(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "t":
		return m, m.toggleThemeCmd()
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m Model) toggleThemeCmd() tea.Cmd {
	if m.themes == nil {
		next := m.theme.Opposite()
		return func() tea.Msg { return themeChangedMsg{theme: next} }
	}
	themes, ctx := m.themes, m.ctx
	return func() tea.Msg {
		next, err := themes.Toggle(ctx)
		if err != nil {
			return mutationMsg{err: err}
		}
		return themeChangedMsg{theme: next}
	}
}

func (m *Model) focusDeal(id string) {
	for col := range models.Stages {
		for row, d := range m.boardColumn(col) {
			if d.ID == id {
				m.boardCol, m.boardRow = col, row
				return
			}
		}
	}
}

// clampCursors keeps selections inside lists that may have shrunk.
func (m *Model) clampCursors() {
	var n int
	switch m.tab {
	case EntityClients:
		n = len(m.clients.Items())
	case EntityDeals:
		n = len(m.deals.Items())
	}
	if m.tab != EntityBoard && m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
	if col := m.boardColumn(m.boardCol); m.boardRow >= len(col) {
		m.boardRow = max(len(col)-1, 0)
	}
}
