// ABOUTME: Theme-aware lipgloss styles for the TUI
// ABOUTME: Rebuilt whenever the light/dark preference changes
package tui

import (
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/LautaroSnchz/kion-crm/theme"
	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	accent, text, muted, surface, danger, ok lipgloss.Color
}

var palettes = map[theme.Theme]palette{
	theme.Light: {accent: "91", text: "235", muted: "245", surface: "254", danger: "160", ok: "28"},
	theme.Dark:  {accent: "170", text: "252", muted: "240", surface: "235", danger: "9", ok: "42"},
}

var stageColors = map[models.Stage]lipgloss.Color{
	models.StageLead:      "244",
	models.StageQualified: "33",
	models.StageProposal:  "178",
	models.StageClosed:    "35",
}

type styles struct {
	title         lipgloss.Style
	tabActive     lipgloss.Style
	tabInactive   lipgloss.Style
	help          lipgloss.Style
	status        lipgloss.Style
	errorText     lipgloss.Style
	fieldLabel    lipgloss.Style
	fieldValue    lipgloss.Style
	column        lipgloss.Style
	columnFocused lipgloss.Style
	card          lipgloss.Style
	cardSelected  lipgloss.Style
	confirmBox    lipgloss.Style
	warning       lipgloss.Style
	confirmButton lipgloss.Style
	cancelButton  lipgloss.Style
}

func newStyles(t theme.Theme) styles {
	p, ok := palettes[t]
	if !ok {
		p = palettes[theme.Light]
	}

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			MarginBottom(1),
		tabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			Background(p.surface).
			Padding(0, 2),
		tabInactive: lipgloss.NewStyle().
			Foreground(p.muted).
			Padding(0, 2),
		help: lipgloss.NewStyle().
			Foreground(p.muted).
			MarginTop(1),
		status:    lipgloss.NewStyle().Foreground(p.ok),
		errorText: lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		fieldLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.accent).
			Width(20),
		fieldValue: lipgloss.NewStyle().Foreground(p.text),
		column: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.muted).
			Padding(0, 1),
		columnFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.accent).
			Padding(0, 1),
		card: lipgloss.NewStyle().
			Foreground(p.text).
			MarginBottom(1),
		cardSelected: lipgloss.NewStyle().
			Foreground(p.surface).
			Background(p.accent).
			MarginBottom(1),
		confirmBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.danger).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center),
		warning: lipgloss.NewStyle().
			Foreground(p.danger).
			Bold(true),
		confirmButton: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(p.danger).
			Padding(0, 2).
			MarginRight(2),
		cancelButton: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(p.muted).
			Padding(0, 2),
	}
}

func (s styles) stageHeader(st models.Stage) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(stageColors[st])
}
