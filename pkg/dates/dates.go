// Package dates provides a calendar date type that round-trips through JSON
// as YYYY-MM-DD and through both database engines as a UTC midnight time.
package dates

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Date is a calendar day. The wrapped time is always midnight UTC.
type Date struct {
	time.Time
}

// Of truncates t to its UTC calendar day.
func Of(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC day.
func Today() Date { return Of(time.Now()) }

// Parse accepts YYYY-MM-DD or an RFC 3339 timestamp.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(Layout, s); err == nil {
		return Of(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Of(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

func (d Date) String() string { return d.Format(Layout) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return Of(d.Time.AddDate(0, 0, n)) }

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
		return fmt.Errorf("date must be a string")
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return Of(d.Time).Time, nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Of(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into date", src)
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(Layout) {
		if t, err := time.Parse(Layout, s[:len(Layout)]); err == nil {
			*d = Of(t)
			return nil
		}
	}
	return fmt.Errorf("cannot parse date %q", s)
}
