package category

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"CL", Consultation, false},
		{"cl", Consultation, false},
		{" I ", Investigation, false},
		{"investigation", Investigation, false},
		{"X", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanAndValue(t *testing.T) {
	var c Category
	if err := c.Scan([]byte("I")); err != nil || c != Investigation {
		t.Fatalf("Scan([]byte) = %q, %v", c, err)
	}
	if err := c.Scan(nil); err == nil {
		t.Error("expected error scanning NULL")
	}
	if _, err := Category("Z").Value(); err == nil {
		t.Error("expected error for invalid value")
	}
	v, err := Consultation.Value()
	if err != nil || v != "CL" {
		t.Errorf("Value() = %v, %v", v, err)
	}
}

func TestJSON(t *testing.T) {
	var payload struct {
		ServiceType Category `json:"service_type"`
	}
	if err := json.Unmarshal([]byte(`{"service_type":"cl"}`), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.ServiceType != Consultation {
		t.Errorf("expected CL, got %q", payload.ServiceType)
	}
	if err := json.Unmarshal([]byte(`{"service_type":"LAB"}`), &payload); err == nil {
		t.Error("expected error for unknown service type")
	}
	out, _ := json.Marshal(payload)
	if string(out) != `{"service_type":"CL"}` {
		t.Errorf("unexpected marshal %s", out)
	}
}
