package anonymize

import (
	"testing"
	"time"
)

func TestEncodeSection(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want float64
	}{
		{"gantry id with letter prefix", "G5615530120", 5615530120},
		{"station id with leading zeros", "S0014530010", 14530010},
		{"digits only", "123", 123},
		{"mixed alphanumerics", "a1b2c3", 123},
		{"empty", "", 0},
		{"no digits", "GANTRY", 0},
		{"more than ten digits folds through modulus", "123456789012", 3456789012},
		{"very long id stays bounded", "99999999999999999999", 9999999999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeSection(tt.id); got != tt.want {
				t.Errorf("encodeSection(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestEncodeTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"missing time", time.Time{}, 0},
		{"midnight", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 0},
		{"morning with minutes", time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC), 8.5},
		{"quarter hour", time.Date(2023, 6, 1, 14, 15, 0, 0, time.UTC), 14.25},
		{"end of day", time.Date(2023, 6, 1, 23, 59, 0, 0, time.UTC), 23 + 59.0/60.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeTime(tt.t); got != tt.want {
				t.Errorf("encodeTime(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestDigitString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"G5615530120", "5615530120"},
		{"", ""},
		{"abc", ""},
		{"a1b2", "12"},
	}
	for _, tt := range tests {
		if got := digitString(tt.in); got != tt.want {
			t.Errorf("digitString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFeatureVectors(t *testing.T) {
	records := []Record{
		{SectionID: "G5615530120", ExitTime: time.Date(2023, 6, 1, 8, 30, 0, 0, time.UTC)},
		{SectionID: "", ExitTime: time.Time{}},
	}
	points := featureVectors(records)
	if len(points) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(points))
	}
	if points[0][0] != 5615530120 || points[0][1] != 8.5 {
		t.Errorf("unexpected first vector: %v", points[0])
	}
	if points[1][0] != 0 || points[1][1] != 0 {
		t.Errorf("malformed record should encode to zeros, got %v", points[1])
	}
}
