package omron

import (
	"fmt"
	"strings"
)

// DeviceCategory is the closed set of device kinds the sync understands.
// The wire values are the vendor's category codes.
type DeviceCategory string

const (
	CategoryBPM   DeviceCategory = "0"
	CategoryScale DeviceCategory = "1"
	// The vendor API also knows activity trackers ("2"), thermometers ("3")
	// and pulse oximeters ("4"); those categories are rejected until a
	// mapping for their figures exists.
)

// ParseDeviceCategory maps a registry category name to its enum value.
// Anything outside the closed set is an error, never a silent default.
func ParseDeviceCategory(s string) (DeviceCategory, error) {
	switch strings.ToUpper(s) {
	case "BPM":
		return CategoryBPM, nil
	case "SCALE":
		return CategoryScale, nil
	}

	return "", fmt.Errorf("invalid device category: %q", s)
}

func (c DeviceCategory) String() string {
	switch c {
	case CategoryBPM:
		return "BPM"
	case CategoryScale:
		return "SCALE"
	}

	return string(c)
}

// Device describes one paired device from the registry. Construct through
// NewDevice so every instance satisfies the validation invariants; a failed
// construction means the device is excluded from syncing.
type Device struct {
	Name     string
	MACAddr  string
	Category DeviceCategory
	User     int // user slot on the device, 1-4
	Enabled  bool
}

func NewDevice(name, macaddr, category string, user int, enabled bool) (*Device, error) {
	if !IsValidMACAddr(macaddr) {
		return nil, fmt.Errorf("device %q has invalid MAC address: %q", name, macaddr)
	}

	cat, err := ParseDeviceCategory(category)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", name, err)
	}

	if user < 1 || user > 4 {
		return nil, fmt.Errorf("device %q has invalid user slot: %d", name, user)
	}

	if name == "" {
		name = MACToSerial(macaddr)
	}

	return &Device{
		Name:     name,
		MACAddr:  macaddr,
		Category: cat,
		User:     user,
		Enabled:  enabled,
	}, nil
}

// Serial is a pure function of the MAC address and is never stored
// independently.
func (d *Device) Serial() string {
	return MACToSerial(d.MACAddr)
}
