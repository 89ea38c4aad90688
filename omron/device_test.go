package omron

import (
	"testing"
)

func TestNewDevice(t *testing.T) {
	device, err := NewDevice("scale", "11:22:33:44:55:66", "SCALE", 1, true)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	if device.Name != "scale" {
		t.Errorf("Name = %q, want %q", device.Name, "scale")
	}
	if device.Category != CategoryScale {
		t.Errorf("Category = %v, want %v", device.Category, CategoryScale)
	}
	if device.Serial() != "665544feff332211" {
		t.Errorf("Serial() = %q, want %q", device.Serial(), "665544feff332211")
	}
}

func TestNewDeviceDefaultsNameToSerial(t *testing.T) {
	device, err := NewDevice("", "11:22:33:44:55:66", "BPM", 2, true)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	if device.Name != "665544feff332211" {
		t.Errorf("Name = %q, want serial", device.Name)
	}
}

func TestNewDeviceRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		mac      string
		category string
		user     int
	}{
		{"bad mac", "11:22:33", "SCALE", 1},
		{"empty mac", "", "SCALE", 1},
		{"bad category", "11:22:33:44:55:66", "TRACKER", 1},
		{"raw category code", "11:22:33:44:55:66", "1", 1},
		{"user slot too low", "11:22:33:44:55:66", "SCALE", 0},
		{"user slot too high", "11:22:33:44:55:66", "SCALE", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDevice("d", tt.mac, tt.category, tt.user, true); err == nil {
				t.Error("NewDevice() error = nil, want error")
			}
		})
	}
}

func TestParseDeviceCategory(t *testing.T) {
	for _, s := range []string{"SCALE", "scale", "Scale"} {
		cat, err := ParseDeviceCategory(s)
		if err != nil || cat != CategoryScale {
			t.Errorf("ParseDeviceCategory(%q) = %v, %v; want %v, nil", s, cat, err, CategoryScale)
		}
	}

	cat, err := ParseDeviceCategory("bpm")
	if err != nil || cat != CategoryBPM {
		t.Errorf("ParseDeviceCategory(\"bpm\") = %v, %v; want %v, nil", cat, err, CategoryBPM)
	}

	if _, err := ParseDeviceCategory("THERMOMETER"); err == nil {
		t.Error("ParseDeviceCategory(\"THERMOMETER\") error = nil, want error")
	}
}

func TestDeviceCategoryString(t *testing.T) {
	if got := CategoryBPM.String(); got != "BPM" {
		t.Errorf("CategoryBPM.String() = %q, want %q", got, "BPM")
	}
	if got := CategoryScale.String(); got != "SCALE" {
		t.Errorf("CategoryScale.String() = %q, want %q", got, "SCALE")
	}
}
