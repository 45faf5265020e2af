// ABOUTME: Form-level validation for client and deal input
// ABOUTME: Used by the CLI, MCP and TUI forms; the store itself never validates
package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, fe[f]))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Err returns fe as an error, or nil when there are no field errors.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidateClientInput(in ClientInput) FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(in.Name) == "" {
		fe["name"] = "name is required"
	}
	if strings.TrimSpace(in.Email) == "" {
		fe["email"] = "email is required"
	} else if !ValidEmail(in.Email) {
		fe["email"] = "invalid email"
	}
	if strings.TrimSpace(in.Company) == "" {
		fe["company"] = "company is required"
	}
	if in.Status != "" && !in.Status.Valid() {
		fe["status"] = fmt.Sprintf("invalid status %q", in.Status)
	}
	return fe
}

func ValidateClientPatch(p ClientPatch) FieldErrors {
	fe := FieldErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		fe["name"] = "name is required"
	}
	if p.Email != nil && !ValidEmail(*p.Email) {
		fe["email"] = "invalid email"
	}
	if p.Company != nil && strings.TrimSpace(*p.Company) == "" {
		fe["company"] = "company is required"
	}
	if p.Status != nil && !p.Status.Valid() {
		fe["status"] = fmt.Sprintf("invalid status %q", *p.Status)
	}
	return fe
}

func ValidateDealInput(in DealInput) FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(in.ClientID) == "" {
		fe["client"] = "client is required"
	}
	if strings.TrimSpace(in.Title) == "" {
		fe["title"] = "title is required"
	}
	if in.Value <= 0 {
		fe["value"] = "value must be greater than 0"
	}
	if in.ExpectedCloseDate.IsZero() {
		fe["expected_close_date"] = "expected close date is required"
	}
	if in.Stage != "" && !in.Stage.Valid() {
		fe["stage"] = fmt.Sprintf("invalid stage %q", in.Stage)
	}
	if in.Probability < 0 || in.Probability > 100 {
		fe["probability"] = "probability must be between 0 and 100"
	}
	return fe
}

func ValidateDealPatch(p DealPatch) FieldErrors {
	fe := FieldErrors{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		fe["title"] = "title is required"
	}
	if p.ClientID != nil && strings.TrimSpace(*p.ClientID) == "" {
		fe["client"] = "client is required"
	}
	if p.Value != nil && *p.Value <= 0 {
		fe["value"] = "value must be greater than 0"
	}
	if p.Stage != nil && !p.Stage.Valid() {
		fe["stage"] = fmt.Sprintf("invalid stage %q", *p.Stage)
	}
	if p.Probability != nil && (*p.Probability < 0 || *p.Probability > 100) {
		fe["probability"] = "probability must be between 0 and 100"
	}
	if p.ExpectedCloseDate != nil && p.ExpectedCloseDate.IsZero() {
		fe["expected_close_date"] = "expected close date is required"
	}
	return fe
}
