package tui

import (
	"strings"

	"github.com/LautaroSnchz/kion-crm/viz"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) openGraph(clientID string) (tea.Model, tea.Cmd) {
	m.graphFrom = m.viewMode
	m.graph = viewport.Model{}
	m.viewMode = ViewGraph
	return m, tea.Batch(m.spinner.Tick, m.graphCmd(clientID))
}

// graphCmd renders the pipeline graph, narrowed to one client when clientID is set.
func (m Model) graphCmd(clientID string) tea.Cmd {
	ctx, generator := m.ctx, viz.NewGraphGenerator(m.repo)
	return func() tea.Msg {
		dot, err := generator.GeneratePipelineGraph(ctx, clientID)
		return graphMsg{dot: dot, err: err}
	}
}

func (m Model) renderGraphView() string {
	var s strings.Builder

	// Title
	s.WriteString(m.styles.title.Render("PIPELINE GRAPH"))
	s.WriteString("\n\n")

	if m.graph.TotalLineCount() == 0 {
		s.WriteString(m.spinner.View() + " Generating graph...\n")
	} else {
		s.WriteString(m.styles.fieldValue.Render(m.graph.View()))
	}
	s.WriteString("\n")

	help := []string{"↑/↓: Scroll", "Esc: Back", "q: Quit"}
	s.WriteString(m.styles.help.Render(strings.Join(help, " • ")))

	return s.String()
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = m.graphFrom
		m.graph = viewport.Model{}
		return m, nil
	}

	var cmd tea.Cmd
	m.graph, cmd = m.graph.Update(msg)
	return m, cmd
}
