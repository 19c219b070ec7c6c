package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"socialpilot/internal/models"
)

const sample = `
schedules:
  - platform: twitter
    time_slot: "09:00"
    frequency: daily
    active: true
  - platform: twitter
    time_slot: "17:30"
    frequency: weekdays
    active: false
  - platform: bluesky
    time_slot: "12:15"
    frequency: daily
    active: true
`

func TestParse(t *testing.T) {
	got, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("schedules: got %d, want 3", len(got))
	}
	if got[1].TimeSlot != "17:30" || got[1].Frequency != models.FrequencyWeekdays || got[1].Active {
		t.Errorf("second entry: %+v", got[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad yaml", data: "schedules: [oops"},
		{name: "bad time", data: "schedules:\n  - platform: twitter\n    time_slot: \"25:00\"\n    frequency: daily\n"},
		{name: "bad frequency", data: "schedules:\n  - platform: twitter\n    time_slot: \"09:00\"\n    frequency: monthly\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := Parse([]byte("schedules:\n  - platform: x\n    time_slot: \"9\"\n    frequency: daily\n"))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("validation error not wrapped: %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	got, err := Parse([]byte("  \n"))
	if err != nil || got != nil {
		t.Errorf("Parse(empty) = %v, %v", got, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedules.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("schedules: got %d", len(got))
	}

	if got, err := Load(""); err != nil || got != nil {
		t.Errorf("Load(\"\") = %v, %v", got, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestActive(t *testing.T) {
	all, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	if got := Active(all, "twitter"); len(got) != 1 || got[0].TimeSlot != "09:00" {
		t.Errorf("twitter active: %+v", got)
	}
	if got := Active(all, ""); len(got) != 2 {
		t.Errorf("all active: got %d, want 2", len(got))
	}
	if got := Active(all, "instagram"); got != nil {
		t.Errorf("instagram active: %+v", got)
	}
}
