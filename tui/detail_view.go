package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/LautaroSnchz/kion-crm/viz"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) openDetail(kind EntityType, id string) {
	m.selectedKind = kind
	m.selectedID = id
	m.viewMode = ViewDetail
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	// Title
	if m.selectedKind == EntityClients {
		s.WriteString(m.styles.title.Render("CLIENT"))
	} else {
		s.WriteString(m.styles.title.Render("DEAL"))
	}
	s.WriteString("\n\n")

	switch m.selectedKind {
	case EntityClients:
		s.WriteString(m.renderClientDetail())
	default:
		s.WriteString(m.renderDealDetail())
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderClientDetail() string {
	client := m.clients.ByID(m.selectedID)
	if client == nil {
		return m.styles.errorText.Render("Client not found: " + m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Name", client.Name))
	s.WriteString(m.renderField("Company", client.Company))
	s.WriteString(m.renderField("Email", client.Email))
	s.WriteString(m.renderField("Phone", client.Phone))
	s.WriteString(m.renderField("Status", string(client.Status)))
	s.WriteString(m.renderField("Value", viz.FormatMoney(client.Value)))
	s.WriteString(m.renderField("Created", client.CreatedAt.String()))
	if client.LastContact != nil {
		s.WriteString(m.renderField("Last Contact", client.LastContact.String()))
	}

	s.WriteString("\n")
	s.WriteString(m.styles.fieldLabel.Render("Deals"))
	s.WriteString("\n")

	var found bool
	for _, d := range m.deals.Items() {
		if d.ClientID != client.ID {
			continue
		}
		found = true
		s.WriteString(fmt.Sprintf("  • %s (%s, %s)\n", d.Title, d.Stage.Label(), viz.FormatMoney(d.Value)))
	}
	if !found {
		s.WriteString(m.styles.help.Render("  no deals"))
		s.WriteString("\n")
	}

	return s.String()
}

func (m Model) renderDealDetail() string {
	deal := m.deals.ByID(m.selectedID)
	if deal == nil {
		return m.styles.errorText.Render("Deal not found: " + m.selectedID)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Title", deal.Title))
	s.WriteString(m.renderField("Client", m.clientName(deal.ClientID)))
	s.WriteString(m.renderField("Stage", deal.Stage.Label()))
	s.WriteString(m.renderField("Value", viz.FormatMoney(deal.Value)))
	s.WriteString(m.renderField("Probability", strconv.Itoa(deal.Probability)+"%"))
	s.WriteString(m.renderField("Expected Close", deal.ExpectedCloseDate.String()))
	s.WriteString(m.renderField("Owner", deal.Owner))
	s.WriteString(m.renderField("Created", deal.CreatedAt.String()))

	if deal.Notes != "" {
		s.WriteString("\n")
		s.WriteString(m.styles.fieldLabel.Render("Notes"))
		s.WriteString("\n")
		s.WriteString(viz.RenderMarkdown(deal.Notes, m.theme == theme.Dark, max(m.width-4, 40)))
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return m.styles.fieldLabel.Render(label+":") + " " + m.styles.fieldValue.Render(value) + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{"Esc: Back", "e: Edit", "d: Delete"}
	if m.selectedKind == EntityDeals {
		help = append(help, "g: Pipeline graph")
	} else {
		help = append(help, "g: Client graph")
	}
	help = append(help, "q: Quit")
	return m.styles.help.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewList
		m.status = ""
	case "e":
		return m.openForm(m.selectedKind, m.selectedID)
	case "d":
		return m.confirmDelete(m.selectedKind, m.selectedID)
	case "g":
		if m.selectedKind == EntityClients {
			return m.openGraph(m.selectedID)
		}
		return m.openGraph("")
	}
	return m, nil
}
