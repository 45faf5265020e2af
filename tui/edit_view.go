package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/live"
	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formField struct {
	key   string
	label string
	input textinput.Model
}

// form is the shared create/edit form for clients and deals.
// editingID is empty when creating.
type form struct {
	kind      EntityType
	editingID string
	fields    []formField
	focus     int
	errs      models.FieldErrors
	saving    bool
}

func newField(key, label, placeholder string, limit int) formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	return formField{key: key, label: label, input: in}
}

func (f *form) set(key, v string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].input.SetValue(v)
			return
		}
	}
}

func (f *form) updateFocus() {
	for i := range f.fields {
		if i == f.focus {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

func (m Model) openForm(kind EntityType, id string) (tea.Model, tea.Cmd) {
	if !m.canWrite() {
		m.err = errReadOnly
		return m, nil
	}
	if kind == EntityBoard {
		kind = EntityDeals
	}

	f := &form{kind: kind, editingID: id}
	if kind == EntityClients {
		f.fields = []formField{
			newField("name", "Name", "Full name", 100),
			newField("email", "Email", "name@company.com", 100),
			newField("phone", "Phone", "+1 555 0100", 30),
			newField("company", "Company", "Company name", 100),
			newField("status", "Status", "active / inactive / prospect", 10),
			newField("value", "Value", "Lifetime value in dollars", 15),
			newField("last_contact", "Last Contact", "YYYY-MM-DD or a short note", 40),
		}
		if c := m.clients.ByID(id); c != nil {
			f.set("name", c.Name)
			f.set("email", c.Email)
			f.set("phone", c.Phone)
			f.set("company", c.Company)
			f.set("status", string(c.Status))
			f.set("value", strconv.FormatInt(c.Value, 10))
			if c.LastContact != nil {
				f.set("last_contact", c.LastContact.String())
			}
		}
	} else {
		f.fields = []formField{
			newField("title", "Title", "Deal title", 100),
			newField("client", "Client", "Client name or id", 100),
			newField("value", "Value", "Amount in dollars", 15),
			newField("stage", "Stage", "lead / qualified / proposal / closed", 20),
			newField("probability", "Probability", "0-100", 3),
			newField("close", "Expected Close", "YYYY-MM-DD", 10),
			newField("owner", "Owner", "Account owner", 100),
			newField("notes", "Notes", "Markdown notes", 500),
		}
		if d := m.deals.ByID(id); d != nil {
			f.set("title", d.Title)
			f.set("client", m.clientName(d.ClientID))
			f.set("value", strconv.FormatInt(d.Value, 10))
			f.set("stage", string(d.Stage))
			f.set("probability", strconv.Itoa(d.Probability))
			f.set("close", d.ExpectedCloseDate.String())
			f.set("owner", d.Owner)
			f.set("notes", d.Notes)
		}
	}
	f.updateFocus()

	m.form = f
	m.err = nil
	m.viewMode = ViewEdit
	return m, textinput.Blink
}

func (m Model) renderEditView() string {
	var s strings.Builder
	f := m.form

	// Title
	noun := "DEAL"
	if f.kind == EntityClients {
		noun = "CLIENT"
	}
	if f.editingID == "" {
		s.WriteString(m.styles.title.Render("NEW " + noun))
	} else {
		s.WriteString(m.styles.title.Render("EDIT " + noun))
	}
	s.WriteString("\n\n")

	for i, fld := range f.fields {
		if i == f.focus {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(m.styles.fieldLabel.Render(fld.label))
		s.WriteString(fld.input.View())
		if msg, ok := f.errs[fld.key]; ok {
			s.WriteString("  ")
			s.WriteString(m.styles.errorText.Render(msg))
		}
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if f.saving {
		s.WriteString(m.spinner.View() + " Saving...\n")
	} else if m.err != nil && len(f.errs) == 0 {
		s.WriteString(m.renderStatusLine())
	}
	s.WriteString(m.styles.help.Render(strings.Join([]string{"Tab/↓: Next field", "Shift+Tab/↑: Previous", "Enter: Save", "Esc: Cancel"}, " • ")))

	return s.String()
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if f == nil {
		m.viewMode = ViewList
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.form = nil
		m.err = nil
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		f.focus = (f.focus + 1) % len(f.fields)
		f.updateFocus()
		return m, nil
	case "shift+tab", "up":
		f.focus = (f.focus + len(f.fields) - 1) % len(f.fields)
		f.updateFocus()
		return m, nil
	case "enter":
		if f.saving {
			return m, nil
		}
		f.saving = true
		f.errs = nil
		return m, tea.Batch(m.spinner.Tick, m.saveCmd())
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return m, cmd
}

// saveCmd validates the form and writes through the live accessors.
func (m Model) saveCmd() tea.Cmd {
	ctx, repo, clients, deals := m.ctx, m.repo, m.clients, m.deals
	f := *m.form
	values := make(map[string]string, len(f.fields))
	for _, fld := range f.fields {
		values[fld.key] = strings.TrimSpace(fld.input.Value())
	}

	return func() tea.Msg {
		if f.kind == EntityClients {
			return saveClient(ctx, clients, f.editingID, values)
		}
		return saveDeal(ctx, repo, deals, f.editingID, values)
	}
}

func saveClient(ctx context.Context, clients *live.Clients, id string, v map[string]string) tea.Msg {
	fe := models.FieldErrors{}
	in := models.ClientInput{
		Name:    v["name"],
		Email:   v["email"],
		Phone:   v["phone"],
		Company: v["company"],
	}
	if v["status"] != "" {
		st, err := models.ParseClientStatus(v["status"])
		if err != nil {
			fe["status"] = err.Error()
		}
		in.Status = st
	}
	if v["value"] != "" {
		n, err := strconv.ParseInt(strings.ReplaceAll(v["value"], ",", ""), 10, 64)
		if err != nil || n < 0 {
			fe["value"] = "value must be a whole number"
		}
		in.Value = n
	}
	in.LastContact = models.MarkerFor(v["last_contact"])
	for k, msg := range models.ValidateClientInput(in) {
		if _, ok := fe[k]; !ok {
			fe[k] = msg
		}
	}
	if err := fe.Err(); err != nil {
		return mutationMsg{err: err}
	}

	if id == "" {
		c, err := clients.Add(ctx, in)
		if err != nil {
			return mutationMsg{err: err}
		}
		return mutationMsg{status: "✓ Client added: " + c.Name, back: true}
	}

	patch := models.ClientPatch{
		Name:        &in.Name,
		Email:       &in.Email,
		Phone:       &in.Phone,
		Company:     &in.Company,
		Value:       &in.Value,
		LastContact: in.LastContact,
	}
	if in.Status != "" {
		patch.Status = &in.Status
	}
	c, err := clients.Update(ctx, id, patch)
	if err != nil {
		return mutationMsg{err: err}
	}
	if c == nil {
		return mutationMsg{err: fmt.Errorf("%w: %s", db.ErrClientNotFound, id)}
	}
	return mutationMsg{status: "✓ Client updated: " + c.Name, back: true}
}

func saveDeal(ctx context.Context, repo *db.Repository, deals *live.Deals, id string, v map[string]string) tea.Msg {
	fe := models.FieldErrors{}
	in := models.DealInput{
		Title: v["title"],
		Owner: v["owner"],
		Notes: v["notes"],
	}

	if v["client"] != "" {
		client, err := db.ResolveClient(ctx, repo, v["client"])
		if err != nil {
			fe["client"] = err.Error()
		} else {
			in.ClientID = client.ID
		}
	}
	if v["value"] != "" {
		n, err := strconv.ParseInt(strings.ReplaceAll(v["value"], ",", ""), 10, 64)
		if err != nil {
			fe["value"] = "value must be a whole number"
		}
		in.Value = n
	}
	if v["stage"] != "" {
		st, err := models.ParseStage(v["stage"])
		if err != nil {
			fe["stage"] = err.Error()
		}
		in.Stage = st
	}
	if v["probability"] != "" {
		p, err := strconv.Atoi(strings.TrimSuffix(v["probability"], "%"))
		if err != nil {
			fe["probability"] = "probability must be a number"
		}
		in.Probability = p
	}
	if v["close"] != "" {
		d, err := models.ParseDate(v["close"])
		if err != nil {
			fe["expected_close_date"] = "use YYYY-MM-DD"
		} else {
			in.ExpectedCloseDate = d
		}
	}
	for k, msg := range models.ValidateDealInput(in) {
		if _, ok := fe[k]; !ok {
			fe[k] = msg
		}
	}
	// The form shows the close date under its own key.
	if msg, ok := fe["expected_close_date"]; ok {
		delete(fe, "expected_close_date")
		fe["close"] = msg
	}
	if err := fe.Err(); err != nil {
		return mutationMsg{err: err}
	}

	if id == "" {
		d, err := deals.Add(ctx, in)
		if err != nil {
			return mutationMsg{err: err}
		}
		return mutationMsg{status: "✓ Deal created: " + d.Title, back: true, focus: d.ID}
	}

	patch := models.DealPatch{
		Title:             &in.Title,
		ClientID:          &in.ClientID,
		Value:             &in.Value,
		Probability:       &in.Probability,
		ExpectedCloseDate: &in.ExpectedCloseDate,
		Owner:             &in.Owner,
		Notes:             &in.Notes,
	}
	if in.Stage != "" {
		patch.Stage = &in.Stage
	}
	d, err := deals.Update(ctx, id, patch)
	if err != nil {
		return mutationMsg{err: err}
	}
	if d == nil {
		return mutationMsg{err: fmt.Errorf("deal not found: %s", id)}
	}
	return mutationMsg{status: "✓ Deal updated: " + d.Title, back: true, focus: d.ID}
}
