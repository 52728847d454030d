package reference

import "time"

// DosePattern maps a dosing shorthand such as 1-0-1 to patient-facing
// descriptions.
type DosePattern struct {
	ID            int64     `db:"id" json:"id"`
	DoseValue     string    `db:"dose_value" json:"dose_value"`
	DescriptionEN string    `db:"description_en" json:"description_en"`
	DescriptionHI *string   `db:"description_hi" json:"description_hi,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// FixReport summarizes a FixDosePatterns run.
type FixReport struct {
	Scanned    int `json:"scanned"`
	Normalized int `json:"normalized"`
	Merged     int `json:"merged"`
	Described  int `json:"described"`
	// Medicines counts prescription lines rewritten to a normalized value.
	Medicines int64 `json:"medicines"`
}

// LoadReport counts rows inserted per table. Rows that already existed are
// not counted.
type LoadReport map[string]int
