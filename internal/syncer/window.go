package syncer

import (
	"errors"
	"time"

	"github.com/omramin/omramin/omron"
)

// ErrEmptyWindow signals a computed sync window with no extent, e.g. after
// a clock or timezone anomaly. The caller must abort that sync invocation
// rather than silently sync nothing.
var ErrEmptyWindow = errors.New("syncer: empty sync window")

// Window is a local wall-clock date range for one sync invocation.
type Window struct {
	Start time.Time
	End   time.Time
}

// CalculateWindow computes the window covering daysBack days before now up
// to the end of today, both in now's location. daysBack is clamped to >= 0.
func CalculateWindow(now time.Time, daysBack int) (Window, error) {
	if daysBack < 0 {
		daysBack = 0
	}

	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	window := Window{
		Start: midnight.AddDate(0, 0, -daysBack),
		End:   midnight.AddDate(0, 0, 1).Add(-time.Second),
	}

	if !window.End.After(window.Start) {
		return Window{}, ErrEmptyWindow
	}

	return window, nil
}

// FilterDevices narrows the registry to the devices one sync run should
// touch. Disabled devices are always dropped. A non-empty names list keeps
// devices whose name, serial or MAC address exactly matches any entry
// (a union filter, not an intersection); an empty category keeps all
// categories.
func FilterDevices(devices []*omron.Device, names []string, category omron.DeviceCategory) []*omron.Device {
	var out []*omron.Device
	for _, device := range devices {
		if !device.Enabled {
			continue
		}

		if category != "" && device.Category != category {
			continue
		}

		if len(names) > 0 && !matchesAny(device, names) {
			continue
		}

		out = append(out, device)
	}

	return out
}

func matchesAny(device *omron.Device, names []string) bool {
	for _, name := range names {
		if name == device.Name || name == device.MACAddr || name == device.Serial() {
			return true
		}
	}

	return false
}
