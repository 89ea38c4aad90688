package omron

import (
	"regexp"
	"strings"
)

// WeightUnit is the vendor's unit subtype code for weight figures.
type WeightUnit int

const (
	WeightUnitG  WeightUnit = 8192
	WeightUnitKG WeightUnit = 8195
	WeightUnitLB WeightUnit = 8208
	WeightUnitST WeightUnit = 8224
)

const lbsToKg = 0.45359237

var macAddrRegex = regexp.MustCompile(`^([0-9a-fA-F]{2}[:-]){5}[0-9a-fA-F]{2}$`)

// IsValidMACAddr reports whether macaddr is six hex octets separated by
// colons or dashes.
func IsValidMACAddr(macaddr string) bool {
	return macAddrRegex.MatchString(macaddr)
}

// MACToSerial derives a device serial number from its BLE MAC address: the
// last three octets reversed, the fixed bytes fe ff, then the first three
// octets reversed, all lower case. The reordering mirrors the device
// firmware's convention and must stay bit-exact; the serial addresses the
// device both during discovery and against the vendor API.
// e.g. 11:22:33:44:55:66 -> 665544feff332211
func MACToSerial(macaddr string) string {
	o := strings.Split(strings.ReplaceAll(macaddr, "-", ":"), ":")
	if len(o) != 6 {
		return ""
	}

	serial := o[5] + o[4] + o[3] + "fe" + "ff" + o[2] + o[1] + o[0]
	return strings.ToLower(serial)
}

// ConvertWeightToKg converts a weight figure to kilograms based on the
// vendor's unit subtype code. Unknown codes are assumed to already be
// kilograms.
func ConvertWeightToKg(weight float64, unit WeightUnit) float64 {
	switch unit {
	case WeightUnitG:
		return weight / 1000
	case WeightUnitLB:
		return weight * lbsToKg
	case WeightUnitST:
		return weight * 6.35029318
	}

	return weight
}
