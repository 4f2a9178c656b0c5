package gstr1

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "02-01-2006", "02-Jan-06", "02-Jan-2006", time.RFC3339}

// Date is a calendar date. It marshals as YYYY-MM-DD and accepts the
// dd-mm-yyyy and dd-Mon-yy forms used in report output.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses any supported layout. An empty string yields the zero date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("gstr1: unrecognised date %q", s)
}

// MustDate parses s and panics on failure. Intended for fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Filing renders the dd-mm-yyyy form used in the filing JSON.
func (d Date) Filing() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02-01-2006")
}

// Display renders the dd-Mon-yy form shown in report output.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02-Jan-06")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("gstr1: date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
