package omron

import (
	"math"
	"testing"
)

func TestIsValidMACAddr(t *testing.T) {
	valid := []string{
		"11:22:33:44:55:66",
		"AA:BB:CC:DD:EE:FF",
		"aa-bb-cc-dd-ee-ff",
		"0A:1b:2C:3d:4E:5f",
	}
	for _, mac := range valid {
		if !IsValidMACAddr(mac) {
			t.Errorf("IsValidMACAddr(%q) = false, want true", mac)
		}
	}

	invalid := []string{
		"",
		"11:22:33:44:55",
		"11:22:33:44:55:66:77",
		"11:22:33:44:55:6",
		"gg:22:33:44:55:66",
		"112233445566",
		"11:22:33:44:55:66 ",
	}
	for _, mac := range invalid {
		if IsValidMACAddr(mac) {
			t.Errorf("IsValidMACAddr(%q) = true, want false", mac)
		}
	}
}

func TestMACToSerial(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"11:22:33:44:55:66", "665544feff332211"},
		{"11-22-33-44-55-66", "665544feff332211"},
		{"AA:BB:CC:DD:EE:FF", "ffeeddfeffccbbaa"},
		{"00:00:00:00:00:00", "000000feff000000"},
	}

	for _, tt := range tests {
		got := MACToSerial(tt.mac)
		if got != tt.want {
			t.Errorf("MACToSerial(%q) = %q, want %q", tt.mac, got, tt.want)
		}
	}
}

func TestMACToSerialShape(t *testing.T) {
	serial := MACToSerial("28:FF:B2:C1:D0:E9")

	if len(serial) != 16 {
		t.Fatalf("serial length = %d, want 16", len(serial))
	}
	if serial[6:10] != "feff" {
		t.Errorf("serial[6:10] = %q, want %q", serial[6:10], "feff")
	}
	if serial != MACToSerial("28:ff:b2:c1:d0:e9") {
		t.Error("serial derivation is case sensitive")
	}
}

func TestConvertWeightToKg(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		unit   WeightUnit
		want   float64
	}{
		{"grams", 70000, WeightUnitG, 70},
		{"kilograms", 70.5, WeightUnitKG, 70.5},
		{"pounds", 154, WeightUnitLB, 154 * 0.45359237},
		{"stones", 11, WeightUnitST, 11 * 6.35029318},
		{"unknown unit passes through", 70, WeightUnit(9999), 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertWeightToKg(tt.weight, tt.unit)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ConvertWeightToKg(%v, %d) = %v, want %v", tt.weight, tt.unit, got, tt.want)
			}
		})
	}
}

func TestConvertWeightToKgRoundTrip(t *testing.T) {
	inverses := []struct {
		unit WeightUnit
		back func(kg float64) float64
	}{
		{WeightUnitG, func(kg float64) float64 { return kg * 1000 }},
		{WeightUnitKG, func(kg float64) float64 { return kg }},
		{WeightUnitLB, func(kg float64) float64 { return kg / 0.45359237 }},
		{WeightUnitST, func(kg float64) float64 { return kg / 6.35029318 }},
	}

	for _, inv := range inverses {
		for _, w := range []float64{0.5, 70, 154.32, 100000} {
			kg := ConvertWeightToKg(w, inv.unit)
			if got := inv.back(kg); math.Abs(got-w) > 1e-9*w {
				t.Errorf("unit %d: round trip of %v came back as %v", inv.unit, w, got)
			}
		}
	}
}
