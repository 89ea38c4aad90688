package models

import (
	"gorm.io/gorm"

	"github.com/omramin/omramin/omron"
)

// Device is one paired-device row in the local registry.
type Device struct {
	gorm.Model
	Name       string `gorm:"uniqueIndex"`
	MACAddress string `gorm:"uniqueIndex"`
	Category   string
	User       int
	Enabled    bool
}

// OmronDevice converts the stored row into the validated registry entry.
// A row that no longer validates (e.g. a category written by a newer
// schema) fails here, and the caller treats the device as excluded from
// syncing.
func (d *Device) OmronDevice() (*omron.Device, error) {
	return omron.NewDevice(d.Name, d.MACAddress, d.Category, d.User, d.Enabled)
}
