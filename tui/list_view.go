package tui

import (
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	title := strings.ToUpper(m.appName)
	if m.session != nil {
		title += fmt.Sprintf("  ·  %s (%s)", m.session.Name, m.session.Role)
	}
	s.WriteString(m.styles.title.Render(title))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.tab {
	case EntityBoard:
		s.WriteString(m.renderBoard())
	case EntityClients:
		s.WriteString(m.renderClientsTable())
	case EntityDeals:
		s.WriteString(m.renderDealsTable())
	}
	s.WriteString("\n")

	s.WriteString(m.renderStatusLine())
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for i, tab := range tabNames {
		if EntityType(i) == m.tab {
			rendered = append(rendered, m.styles.tabActive.Render(tab))
		} else {
			rendered = append(rendered, m.styles.tabInactive.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatusLine() string {
	switch {
	case m.err != nil:
		return m.styles.errorText.Render("Error: "+m.err.Error()) + "\n"
	case m.status != "":
		return m.styles.status.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) boardColumn(col int) []models.Deal {
	if col < 0 || col >= len(models.Stages) {
		return nil
	}
	return m.deals.ByStage(models.Stages[col])
}

func (m Model) clientName(id string) string {
	if c := m.clients.ByID(id); c != nil {
		return c.Name
	}
	return "-"
}

func (m Model) renderBoard() string {
	colWidth := max((m.width-8)/len(models.Stages)-4, 18)

	var columns []string
	for i, st := range models.Stages {
		deals := m.boardColumn(i)
		var total int64
		for _, d := range deals {
			total += d.Value
		}

		var col strings.Builder
		col.WriteString(m.styles.stageHeader(st).Render(fmt.Sprintf("%s (%d)", st.Label(), len(deals))))
		col.WriteString("\n")
		col.WriteString(viz.FormatMoney(total))
		col.WriteString("\n\n")

		for j, d := range deals {
			card := fmt.Sprintf("%s\n%s · %s", truncate(d.Title, colWidth), truncate(m.clientName(d.ClientID), colWidth-12), viz.FormatMoney(d.Value))
			style := m.styles.card
			if i == m.boardCol && j == m.boardRow {
				style = m.styles.cardSelected
			}
			col.WriteString(style.Width(colWidth).Render(card))
			col.WriteString("\n")
		}
		if len(deals) == 0 {
			col.WriteString(m.styles.help.Render("no deals"))
		}

		style := m.styles.column
		if i == m.boardCol {
			style = m.styles.columnFocused
		}
		columns = append(columns, style.Width(colWidth).Render(col.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// truncate cuts s to n terminal cells, counting wide runes and styling.
func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	return ansi.Truncate(s, n, "…")
}

func (m Model) newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)
	ts := table.DefaultStyles()
	ts.Selected = m.styles.tabActive
	t.SetStyles(ts)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t
}

func (m Model) renderClientsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Company", Width: 22},
		{Title: "Email", Width: 26},
		{Title: "Status", Width: 10},
		{Title: "Value", Width: 12},
	}

	var rows []table.Row
	for _, c := range m.clients.Items() {
		rows = append(rows, table.Row{c.Name, c.Company, c.Email, string(c.Status), viz.FormatMoney(c.Value)})
	}
	return m.newTable(columns, rows).View()
}

func (m Model) renderDealsTable() string {
	columns := []table.Column{
		{Title: "Title", Width: 26},
		{Title: "Client", Width: 22},
		{Title: "Stage", Width: 12},
		{Title: "Value", Width: 12},
		{Title: "Close", Width: 11},
	}

	var rows []table.Row
	for _, d := range m.deals.Items() {
		rows = append(rows, table.Row{d.Title, m.clientName(d.ClientID), d.Stage.Label(), viz.FormatMoney(d.Value), d.ExpectedCloseDate.String()})
	}
	return m.newTable(columns, rows).View()
}

func (m Model) renderListHelp() string {
	help := []string{"Tab: Switch tabs", "Enter: Details", "n: New", "e: Edit", "d: Delete"}
	if m.tab == EntityBoard {
		help = append([]string{"←/→ ↑/↓: Navigate", "</>: Move stage"}, help...)
	} else {
		help = append([]string{"↑/↓: Navigate"}, help...)
	}
	help = append(help, "g: Graph", "t: Theme", "r: Refresh", "q: Quit")
	return m.styles.help.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "tab":
		m.tab = (m.tab + 1) % EntityType(len(tabNames))
		m.selectedRow = 0
		return m, nil
	case "shift+tab":
		m.tab = (m.tab + EntityType(len(tabNames)) - 1) % EntityType(len(tabNames))
		m.selectedRow = 0
		return m, nil
	case "r":
		m.loaded = false
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())
	case "g":
		return m.openGraph("")
	}

	if m.tab == EntityBoard {
		return m.handleBoardKeys(msg)
	}

	n := len(m.clients.Items())
	if m.tab == EntityDeals {
		n = len(m.deals.Items())
	}

	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < n-1 {
			m.selectedRow++
		}
	case "enter":
		if id := m.getSelectedID(); id != "" {
			m.openDetail(m.tab, id)
		}
	case "n":
		return m.openForm(m.tab, "")
	case "e":
		if id := m.getSelectedID(); id != "" {
			return m.openForm(m.tab, id)
		}
	case "d":
		if id := m.getSelectedID(); id != "" {
			return m.confirmDelete(m.tab, id)
		}
	}
	return m, nil
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	col := m.boardColumn(m.boardCol)

	switch msg.String() {
	case "left", "h":
		if m.boardCol > 0 {
			m.boardCol--
			m.boardRow = 0
		}
	case "right", "l":
		if m.boardCol < len(models.Stages)-1 {
			m.boardCol++
			m.boardRow = 0
		}
	case "up", "k":
		if m.boardRow > 0 {
			m.boardRow--
		}
	case "down", "j":
		if m.boardRow < len(col)-1 {
			m.boardRow++
		}
	case "<", ",":
		return m.moveSelected(-1)
	case ">", ".":
		return m.moveSelected(1)
	case "enter":
		if id := m.getSelectedID(); id != "" {
			m.openDetail(EntityDeals, id)
		}
	case "n":
		return m.openForm(EntityDeals, "")
	case "e":
		if id := m.getSelectedID(); id != "" {
			return m.openForm(EntityDeals, id)
		}
	case "d":
		if id := m.getSelectedID(); id != "" {
			return m.confirmDelete(EntityDeals, id)
		}
	}
	return m, nil
}

// moveSelected moves the focused board card one stage left or right.
// The cursor follows the card once the move lands.
func (m Model) moveSelected(step int) (tea.Model, tea.Cmd) {
	col := m.boardColumn(m.boardCol)
	target := m.boardCol + step
	if m.boardRow >= len(col) || target < 0 || target >= len(models.Stages) {
		return m, nil
	}
	if !m.canWrite() {
		m.err = errReadOnly
		return m, nil
	}

	deal := col[m.boardRow]
	stage := models.Stages[target]

	deals, ctx := m.deals, m.ctx
	return m, func() tea.Msg {
		moved, err := deals.Move(ctx, deal.ID, stage)
		if err != nil {
			return mutationMsg{err: err}
		}
		if moved == nil {
			return mutationMsg{err: fmt.Errorf("deal not found: %s", deal.ID)}
		}
		return mutationMsg{status: fmt.Sprintf("Moved %s to %s", moved.Title, stage.Label()), focus: moved.ID}
	}
}

func (m Model) getSelectedID() string {
	switch m.tab {
	case EntityBoard:
		col := m.boardColumn(m.boardCol)
		if m.boardRow < len(col) {
			return col[m.boardRow].ID
		}
	case EntityClients:
		clients := m.clients.Items()
		if m.selectedRow < len(clients) {
			return clients[m.selectedRow].ID
		}
	case EntityDeals:
		deals := m.deals.Items()
		if m.selectedRow < len(deals) {
			return deals[m.selectedRow].ID
		}
	}
	return ""
}
