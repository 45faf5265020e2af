// ABOUTME: Data models for CRM entities
// ABOUTME: Defines Client and Deal records plus their create inputs and partial-update patches
package models

type ClientStatus string

const (
	StatusActive   ClientStatus = "active"
	StatusInactive ClientStatus = "inactive"
	StatusProspect ClientStatus = "prospect"
)

// ClientStatuses lists every status in display order.
var ClientStatuses = []ClientStatus{StatusActive, StatusInactive, StatusProspect}

func (s ClientStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusProspect:
		return true
	}
	return false
}

type Client struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Email       string       `json:"email" yaml:"email"`
	Phone       string       `json:"phone" yaml:"phone"`
	Company     string       `json:"company" yaml:"company"`
	Status      ClientStatus `json:"status" yaml:"status"`
	Value       int64        `json:"value" yaml:"value"`
	CreatedAt   Date         `json:"created_at" yaml:"created_at"`
	LastContact *ContactMarker `json:"last_contact,omitempty" yaml:"last_contact,omitempty"`
}

type Deal struct {
	ID                string `json:"id" yaml:"id"`
	Title             string `json:"title" yaml:"title"`
	ClientID          string `json:"client_id" yaml:"client_id"`
	Value             int64  `json:"value" yaml:"value"`
	Stage             Stage  `json:"stage" yaml:"stage"`
	Probability       int    `json:"probability" yaml:"probability"`
	ExpectedCloseDate Date   `json:"expected_close_date" yaml:"expected_close_date"`
	Owner             string `json:"owner" yaml:"owner"`
	Notes             string `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt         Date   `json:"created_at" yaml:"created_at"`
}

// ClientInput carries the caller-supplied fields of a new client.
// ID and CreatedAt are assigned by the store.
type ClientInput struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	Status      ClientStatus
	Value       int64
	LastContact *ContactMarker
}

// DealInput carries the caller-supplied fields of a new deal.
type DealInput struct {
	Title             string
	ClientID          string
	Value             int64
	Stage             Stage
	Probability       int
	ExpectedCloseDate Date
	Owner             string
	Notes             string
}

// ClientPatch is a partial update: nil fields are left untouched.
type ClientPatch struct {
	Name        *string
	Email       *string
	Phone       *string
	Company     *string
	Status      *ClientStatus
	Value       *int64
	LastContact *ContactMarker
}

// Apply merges the set fields into c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.LastContact != nil {
		lc := *p.LastContact
		c.LastContact = &lc
	}
}

func (p ClientPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Company == nil &&
		p.Status == nil && p.Value == nil && p.LastContact == nil
}

// DealPatch is a partial update: nil fields are left untouched.
type DealPatch struct {
	Title             *string
	ClientID          *string
	Value             *int64
	Stage             *Stage
	Probability       *int
	ExpectedCloseDate *Date
	Owner             *string
	Notes             *string
}

// Apply merges the set fields into d.
func (p DealPatch) Apply(d *Deal) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.ClientID != nil {
		d.ClientID = *p.ClientID
	}
	if p.Value != nil {
		d.Value = *p.Value
	}
	if p.Stage != nil {
		d.Stage = *p.Stage
	}
	if p.Probability != nil {
		d.Probability = *p.Probability
	}
	if p.ExpectedCloseDate != nil {
		d.ExpectedCloseDate = *p.ExpectedCloseDate
	}
	if p.Owner != nil {
		d.Owner = *p.Owner
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
}

func (p DealPatch) IsEmpty() bool {
	return p.Title == nil && p.ClientID == nil && p.Value == nil && p.Stage == nil &&
		p.Probability == nil && p.ExpectedCloseDate == nil && p.Owner == nil && p.Notes == nil
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
