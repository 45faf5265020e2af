// ABOUTME: Calendar date type for creation and close dates, plus the last-contact marker
// ABOUTME: Serializes as YYYY-MM-DD in JSON and YAML
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a day without a time of day, always normalized to midnight UTC.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	return NewDate(time.Now())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON and UnmarshalJSON shadow the promoted time.Time methods.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// ContactMarker is the free-form last-contact note on a client. New entries
// are usually dates, but relative text such as "Hoy" or "Hace 3 días" is kept
// as written.
type ContactMarker string

// MarkerFor returns a pointer to the trimmed marker, or nil when s is blank.
func MarkerFor(s string) *ContactMarker {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	m := ContactMarker(s)
	return &m
}

func (m ContactMarker) String() string {
	return string(m)
}

// Date reports the marker as a calendar date when it is written as one.
func (m ContactMarker) Date() (Date, bool) {
	d, err := ParseDate(string(m))
	if err != nil {
		return Date{}, false
	}
	return d, true
}
