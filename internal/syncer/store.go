package syncer

import (
	"context"
	"time"

	"github.com/omramin/omramin/omron"
)

// Existing maps a comparison key to the target store's own handles for the
// records at that key. Multiple handles per key should not normally happen
// but is not structurally prevented; overwrite deletes every one.
type Existing map[string][]string

// Store is the target service that receives synced measurements. Handles
// are opaque to the engine. The window passed to ExistingForWindow is local
// wall-clock time, matching how the target store indexes its records.
type Store interface {
	ExistingForWindow(ctx context.Context, category omron.DeviceCategory, start, end time.Time) (Existing, error)
	AddWeighIn(ctx context.Context, m *omron.WeightMeasurement) error
	AddBloodPressure(ctx context.Context, m *omron.BPMeasurement) error
	DeleteWeighIn(ctx context.Context, handle string, date string) error
	DeleteBloodPressure(ctx context.Context, handle string, date string) error
}

// Journal receives every reconciliation decision for auditing. Entries are
// write-only: the engine never reads them back, and reconciliation always
// recomputes what exists by querying the target store fresh.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry)
}

type JournalEntry struct {
	RunID      string
	DeviceName string
	Category   string
	Action     string
	Key        string
	Handle     string
	Applied    bool
	Error      string
	MeasuredAt time.Time
}
