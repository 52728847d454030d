// Package category holds the service category tag shared by the lab
// catalog, lab order items and bill items.
package category

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is either a consultation (CL) or an investigation (I).
type Category string

const (
	Consultation  Category = "CL"
	Investigation Category = "I"
)

// All lists the valid categories.
var All = []Category{Consultation, Investigation}

// Parse accepts "CL"/"I" in any case, and the long names.
func Parse(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CL", "CONSULTATION":
		return Consultation, nil
	case "I", "INVESTIGATION":
		return Investigation, nil
	}
	return "", fmt.Errorf("invalid service type %q: must be CL or I", s)
}

func (c Category) Valid() bool {
	return c == Consultation || c == Investigation
}

func (c Category) String() string { return string(c) }

// Label is the human readable name.
func (c Category) Label() string {
	switch c {
	case Consultation:
		return "Consultation"
	case Investigation:
		return "Investigation"
	}
	return "Unknown"
}

func (c Category) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid service type %q", string(c))
	}
	return string(c), nil
}

func (c *Category) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("service type is null")
	default:
		return fmt.Errorf("unsupported service type column %T", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("service type must be a string")
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
