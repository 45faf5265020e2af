// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Confirms removal of a client or deal; clients with deals are refused by the store
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) confirmDelete(kind EntityType, id string) (tea.Model, tea.Cmd) {
	if !m.canWrite() {
		m.err = errReadOnly
		return m, nil
	}
	if kind == EntityBoard {
		kind = EntityDeals
	}
	m.selectedKind = kind
	m.selectedID = id
	m.err = nil
	m.viewMode = ViewConfirmDelete
	return m, nil
}

func (m Model) renderConfirmDeleteView() string {
	var entityName, entityType string

	switch m.selectedKind {
	case EntityClients:
		entityType = "client"
		if c := m.clients.ByID(m.selectedID); c != nil {
			entityName = c.Name
		}
	default:
		entityType = "deal"
		if d := m.deals.ByID(m.selectedID); d != nil {
			entityName = d.Title
		}
	}
	if entityName == "" {
		entityName = m.selectedID
	}

	title := m.styles.warning.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", entityType)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(entityType), entityName)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		m.styles.confirmButton.Render("Yes, Delete (y)"),
		m.styles.cancelButton.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		m.styles.confirmBox.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.viewMode = ViewList
		return m, m.deleteCmd(m.selectedKind, m.selectedID)
	case "n", "N", "esc":
		m.viewMode = ViewList
	}
	return m, nil
}

func (m Model) deleteCmd(kind EntityType, id string) tea.Cmd {
	ctx, clients, deals := m.ctx, m.clients, m.deals
	return func() tea.Msg {
		var (
			ok  bool
			err error
		)
		if kind == EntityClients {
			ok, err = clients.Delete(ctx, id)
		} else {
			ok, err = deals.Delete(ctx, id)
		}
		switch {
		case errors.Is(err, db.ErrClientInUse):
			return mutationMsg{err: fmt.Errorf("client still has deals; delete or reassign them first: %w", err)}
		case err != nil:
			return mutationMsg{err: err}
		case !ok:
			return mutationMsg{err: fmt.Errorf("nothing to delete: %s", id)}
		}
		return mutationMsg{status: "✓ Deleted"}
	}
}
