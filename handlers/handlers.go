// ABOUTME: Shared pieces of the MCP tool handlers
// ABOUTME: Output shapes for clients and deals plus the write authorization hook
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/auth"
	"github.com/LautaroSnchz/kion-crm/models"
)

// Guard authorizes mutating tools. *auth.Manager satisfies it.
type Guard interface {
	RequireWriter(ctx context.Context) (*auth.Session, error)
}

func checkWrite(ctx context.Context, guard Guard) error {
	if guard == nil {
		return nil
	}
	if _, err := guard.RequireWriter(ctx); err != nil {
		return err
	}
	return nil
}

type ClientOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company"`
	Status      string `json:"status"`
	Value       int64  `json:"value"`
	CreatedAt   string `json:"created_at"`
	LastContact string `json:"last_contact,omitempty"`
}

func clientToOutput(c *models.Client) ClientOutput {
	out := ClientOutput{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Status:    string(c.Status),
		Value:     c.Value,
		CreatedAt: c.CreatedAt.String(),
	}
	if c.LastContact != nil {
		out.LastContact = c.LastContact.String()
	}
	return out
}

type DealOutput struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	ClientID          string `json:"client_id"`
	ClientName        string `json:"client_name,omitempty"`
	Value             int64  `json:"value"`
	Stage             string `json:"stage"`
	StageLabel        string `json:"stage_label"`
	Probability       int    `json:"probability"`
	ExpectedCloseDate string `json:"expected_close_date"`
	Owner             string `json:"owner,omitempty"`
	Notes             string `json:"notes,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func dealToOutput(d *models.Deal, clientName string) DealOutput {
	return DealOutput{
		ID:                d.ID,
		Title:             d.Title,
		ClientID:          d.ClientID,
		ClientName:        clientName,
		Value:             d.Value,
		Stage:             string(d.Stage),
		StageLabel:        d.Stage.Label(),
		Probability:       d.Probability,
		ExpectedCloseDate: d.ExpectedCloseDate.String(),
		Owner:             d.Owner,
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt.String(),
	}
}

type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// optionalDate parses s unless it is blank.
func optionalDate(field, s string) (*models.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &d, nil
}
