// ABOUTME: Tests for the TUI model
// ABOUTME: Drives the model with key messages against a seeded in-memory repository
package tui

import (
	"context"
	"testing"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/kv"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminSession = &auth.Session{Name: "Admin User", Role: auth.RoleAdmin}
	demoSession  = &auth.Session{Name: "Demo User", Role: auth.RoleDemo}
)

func newTestModel(t *testing.T, sess *auth.Session) (Model, *db.Repository) {
	t.Helper()
	ctx := context.Background()
	store := kv.NewMemoryStore()
	repo := db.NewRepository(store)
	themes := theme.NewManager(store).WithDetector(func() bool { return false })

	m := NewModel(ctx, repo, Options{Session: sess, Themes: themes})
	updated, _ := m.Update(m.loadCmd()())
	m = updated.(Model)
	require.True(t, m.loaded)
	require.NoError(t, m.err)
	return m, repo
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends one key and runs the resulting command once, feeding its
// messages back. Spinner ticks are dropped so nothing sleeps.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(key)
	return drain(t, updated.(Model), cmd)
}

func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = drain(t, m, c)
		}
		return m
	}
	switch msg.(type) {
	case spinner.TickMsg, nil:
		return m
	}
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func typeInto(t *testing.T, m Model, values ...string) Model {
	t.Helper()
	for i, v := range values {
		if v != "" {
			// Typing only schedules cursor blinks, which are not run here.
			updated, _ := m.Update(runes(v))
			m = updated.(Model)
		}
		if i < len(values)-1 {
			m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
		}
	}
	return m
}

func TestBoardShowsStages(t *testing.T) {
	m, _ := newTestModel(t, adminSession)

	assert.Len(t, m.boardColumn(0), 2)
	assert.Len(t, m.boardColumn(1), 2)
	assert.Len(t, m.boardColumn(2), 1)
	assert.Len(t, m.boardColumn(3), 1)
	assert.Nil(t, m.boardColumn(4))

	view := m.View()
	assert.Contains(t, view, "Lead (2)")
	assert.Contains(t, view, "Closed Won (1)")
}

func TestMoveDealRight(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, adminSession)

	id := m.getSelectedID()
	require.NotEmpty(t, id)

	m = press(t, m, runes(">"))
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "to Qualified")

	deal, err := repo.GetDeal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageQualified, deal.Stage)

	// The cursor follows the card.
	assert.Equal(t, 1, m.boardCol)
	assert.Equal(t, id, m.getSelectedID())

	m = press(t, m, runes("<"))
	deal, err = repo.GetDeal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, deal.Stage)
	assert.Equal(t, 0, m.boardCol)
}

func TestMoveStopsAtEdges(t *testing.T) {
	m, _ := newTestModel(t, adminSession)

	updated, cmd := m.Update(runes("<"))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, updated.(Model).boardCol)
}

func TestReadOnlySessionCannotWrite(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, demoSession)
	id := m.getSelectedID()

	updated, cmd := m.Update(runes(">"))
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.err, errReadOnly)

	deal, err := repo.GetDeal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, deal.Stage)

	m = press(t, m, runes("n"))
	assert.Equal(t, ViewList, m.viewMode)
	m = press(t, m, runes("d"))
	assert.Equal(t, ViewList, m.viewMode)
}

func TestThemeToggle(t *testing.T) {
	m, _ := newTestModel(t, demoSession)
	require.Equal(t, theme.Light, m.theme)

	m = press(t, m, runes("t"))
	assert.Equal(t, theme.Dark, m.theme)

	cur, err := m.themes.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, theme.Dark, cur)
}

func TestTabsAndDetail(t *testing.T) {
	m, _ := newTestModel(t, demoSession)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, EntityClients, m.tab)
	assert.Contains(t, m.View(), "Acme SA")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Contains(t, m.View(), "Deals")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, EntityDeals, m.tab)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, EntityBoard, m.tab)
}

func TestCreateClientForm(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, adminSession)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, runes("n"))
	require.Equal(t, ViewEdit, m.viewMode)

	// Empty submit keeps the form open with field errors.
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.form.errs, "name")
	assert.Contains(t, m.form.errs, "email")
	assert.Contains(t, m.form.errs, "company")

	m = typeInto(t, m, "Zed Shaw", "zed@example.com", "", "Zed Co")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, m.err)
	assert.Equal(t, ViewList, m.viewMode)
	assert.Contains(t, m.status, "Client added: Zed Shaw")

	c, err := repo.FindClientByName(ctx, "zed shaw")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, models.StatusActive, c.Status)
	assert.Len(t, m.clients.Items(), 10)
}

func TestCreateDealFormResolvesClientName(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, adminSession)

	m = press(t, m, runes("n"))
	require.Equal(t, ViewEdit, m.viewMode)

	m = typeInto(t, m, "Cloud migration", "globx corp", "5000", "", "", "2026-05-01")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Contains(t, m.form.errs["client"], "did you mean Globex Corp")

	m.form.set("client", "globex corp")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, m.err)
	assert.Equal(t, ViewList, m.viewMode)

	deals, err := repo.DealsForClient(ctx, "3")
	require.NoError(t, err)
	assert.Len(t, deals, 2)
	assert.Len(t, m.boardColumn(0), 3)
	assert.Equal(t, "Cloud migration", m.deals.ByID(m.getSelectedID()).Title)
}

func TestEditDealForm(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, adminSession)
	id := m.getSelectedID()

	m = press(t, m, runes("e"))
	require.Equal(t, ViewEdit, m.viewMode)
	assert.Equal(t, id, m.form.editingID)

	m.form.set("stage", "proposal")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, m.err)

	deal, err := repo.GetDeal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, deal.Stage)
	assert.Equal(t, 2, m.boardCol)
}

func TestDeleteClientInUse(t *testing.T) {
	ctx := context.Background()
	m, repo := newTestModel(t, adminSession)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	for i, c := range m.clients.Items() {
		if c.ID == "1" {
			m.selectedRow = i
		}
	}
	m = press(t, m, runes("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "Acme SA")

	m = press(t, m, runes("y"))
	assert.ErrorIs(t, m.err, db.ErrClientInUse)

	for i, c := range m.clients.Items() {
		if c.ID == "9" {
			m.selectedRow = i
		}
	}
	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	require.NoError(t, m.err)

	c, err := repo.GetClient(ctx, "9")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Len(t, m.clients.Items(), 8)
}

func TestCancelDelete(t *testing.T) {
	m, _ := newTestModel(t, adminSession)

	m = press(t, m, runes("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)
	assert.Len(t, m.boardColumn(0), 2)
}

func TestGraphView(t *testing.T) {
	m, _ := newTestModel(t, demoSession)

	m = press(t, m, runes("g"))
	require.NoError(t, m.err)
	require.Equal(t, ViewGraph, m.viewMode)
	assert.Contains(t, m.View(), "digraph")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewList, m.viewMode)
}

func TestTruncateCountsCells(t *testing.T) {
	assert.Equal(t, "Cloud…", truncate("Cloud migration", 6))
	assert.Equal(t, "Acme", truncate("Acme", 6))
	assert.LessOrEqual(t, lipgloss.Width(truncate("日本語のクライアント", 8)), 8)
}
