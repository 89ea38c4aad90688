package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omramin/omramin/omron"
)

type ActionType int

const (
	ActionAdd ActionType = iota
	ActionDelete
	ActionSkip
)

func (t ActionType) String() string {
	switch t {
	case ActionAdd:
		return "add"
	case ActionDelete:
		return "delete"
	case ActionSkip:
		return "skip"
	}

	return "unknown"
}

// Action is one reconciliation decision for one measurement. Delete
// actions carry the target store's handle for the record being removed.
type Action struct {
	Type        ActionType
	Key         string
	Handle      string
	Measurement omron.Measurement
}

// Plan computes the actions for one device's freshly fetched measurements
// against the records the target store already holds. For a key that
// exists and is being overwritten, the deletes for every matching handle
// precede the add, so a failed delete can never leave a duplicate behind.
func Plan(measurements []omron.Measurement, existing Existing, overwrite bool) []Action {
	var actions []Action
	for _, m := range measurements {
		key := ComparisonKey(m.Date())

		handles, present := existing[key]
		if present {
			if !overwrite {
				actions = append(actions, Action{Type: ActionSkip, Key: key, Measurement: m})
				continue
			}

			for _, handle := range handles {
				actions = append(actions, Action{Type: ActionDelete, Key: key, Handle: handle, Measurement: m})
			}
		}

		actions = append(actions, Action{Type: ActionAdd, Key: key, Measurement: m})
	}

	return actions
}

type Options struct {
	// Overwrite re-writes measurements that already exist in the target
	// store: delete first, then add.
	Overwrite bool
	// DryRun computes and reports every decision but suppresses the actual
	// add/delete calls.
	DryRun bool
}

// Summary is the per-device outcome of one sync invocation.
type Summary struct {
	Device  string
	Fetched int
	Added   int
	Skipped int
	Deleted int
	Failed  int
}

// Engine reconciles one device at a time: fetch from the source, query the
// target store for the same window, decide per measurement, apply. There
// is no shared state across devices and no retry at this layer.
type Engine struct {
	source  omron.Client
	store   Store
	journal Journal
	logger  *slog.Logger
	opts    Options
}

func NewEngine(source omron.Client, store Store, opts Options) *Engine {
	return &Engine{
		source: source,
		store:  store,
		logger: slog.Default(),
		opts:   opts,
	}
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	e.logger = logger
}

func (e *Engine) SetJournal(journal Journal) {
	e.journal = journal
}

// SyncDevice fetches the device's measurements for the window and applies
// the reconciliation plan. Store failures are reported per record and do
// not roll back other records; the returned error covers only failures
// that abort the whole device (fetch, existing-records query). Once the
// plan is being applied, cancelling ctx no longer stops store writes; a
// started device runs to completion.
func (e *Engine) SyncDevice(ctx context.Context, device *omron.Device, window Window) (*Summary, error) {
	if !window.End.After(window.Start) {
		return nil, ErrEmptyWindow
	}

	runID := uuid.NewString()

	e.logger.Info("Starting device sync",
		"device", device.Name,
		"from", window.Start.Format(time.RFC3339),
		"to", window.End.Format(time.RFC3339),
		"overwrite", e.opts.Overwrite,
		"dry_run", e.opts.DryRun,
		"run_id", runID)

	fromMillis := window.Start.Unix() * 1000
	toMillis := window.End.Unix() * 1000

	measurements, err := e.source.GetMeasurements(ctx, device, fromMillis, toMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch measurements for %q: %w", device.Name, err)
	}

	summary := &Summary{Device: device.Name, Fetched: len(measurements)}

	if len(measurements) == 0 {
		e.logger.Info("No new measurements", "device", device.Name)
		return summary, nil
	}

	e.logger.Info("Downloaded measurements from source",
		"device", device.Name, "count", len(measurements))

	existing, err := e.store.ExistingForWindow(ctx, device.Category, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing records for %q: %w", device.Name, err)
	}

	actions := Plan(measurements, existing, e.opts.Overwrite)

	// Keys whose delete failed; their adds are withheld to avoid creating
	// a duplicate next to the record that could not be removed.
	failedDeletes := map[string]bool{}

	// Store calls run detached from the caller's cancellation: an interrupt
	// must never split an overwrite into a delete without its paired add.
	// The caller honors cancellation between devices.
	applyCtx := context.WithoutCancel(ctx)

	for _, action := range actions {
		localTime := omron.LocalTime(action.Measurement)
		timeStr := localTime.Format("2006-01-02T15:04:05")

		var applyErr error

		switch action.Type {
		case ActionSkip:
			e.logger.Info("Measurement already exists",
				"device", device.Name, "time", timeStr, "key", action.Key)
			summary.Skipped++

		case ActionDelete:
			e.logger.Warn("Removing existing record",
				"device", device.Name, "time", timeStr, "handle", action.Handle)
			if !e.opts.DryRun {
				applyErr = e.deleteRecord(applyCtx, device.Category, action.Handle, localTime)
			}
			if applyErr != nil {
				e.logger.Error("Failed to remove existing record",
					"device", device.Name, "time", timeStr, "handle", action.Handle, "error", applyErr)
				failedDeletes[action.Key] = true
				summary.Failed++
			} else {
				summary.Deleted++
			}

		case ActionAdd:
			if failedDeletes[action.Key] {
				e.logger.Warn("Withholding add after failed delete",
					"device", device.Name, "time", timeStr, "key", action.Key)
				summary.Failed++
				continue
			}

			e.logMeasurement(device, timeStr, action.Measurement)
			if !e.opts.DryRun {
				applyErr = e.addRecord(applyCtx, action.Measurement)
			}
			if applyErr != nil {
				e.logger.Error("Failed to add measurement",
					"device", device.Name, "time", timeStr, "error", applyErr)
				summary.Failed++
			} else {
				summary.Added++
			}
		}

		e.record(applyCtx, runID, device, action, localTime, applyErr)
	}

	return summary, nil
}

func (e *Engine) logMeasurement(device *omron.Device, timeStr string, m omron.Measurement) {
	switch v := m.(type) {
	case *omron.WeightMeasurement:
		e.logger.Info("Adding weigh-in",
			"device", device.Name, "time", timeStr, "weight_kg", v.Weight)
	case *omron.BPMeasurement:
		e.logger.Info("Adding blood pressure",
			"device", device.Name, "time", timeStr,
			"systolic", v.Systolic, "diastolic", v.Diastolic, "pulse", v.Pulse)
	}
}

func (e *Engine) addRecord(ctx context.Context, m omron.Measurement) error {
	switch v := m.(type) {
	case *omron.WeightMeasurement:
		return e.store.AddWeighIn(ctx, v)
	case *omron.BPMeasurement:
		return e.store.AddBloodPressure(ctx, v)
	}

	return fmt.Errorf("unsupported measurement type %T", m)
}

func (e *Engine) deleteRecord(ctx context.Context, category omron.DeviceCategory, handle string, localTime time.Time) error {
	date := localTime.Format("2006-01-02")

	switch category {
	case omron.CategoryScale:
		return e.store.DeleteWeighIn(ctx, handle, date)
	case omron.CategoryBPM:
		return e.store.DeleteBloodPressure(ctx, handle, date)
	}

	return fmt.Errorf("unsupported device category %s", category)
}

func (e *Engine) record(ctx context.Context, runID string, device *omron.Device, action Action, localTime time.Time, applyErr error) {
	if e.journal == nil {
		return
	}

	entry := JournalEntry{
		RunID:      runID,
		DeviceName: device.Name,
		Category:   device.Category.String(),
		Action:     action.Type.String(),
		Key:        action.Key,
		Handle:     action.Handle,
		Applied:    !e.opts.DryRun && applyErr == nil && action.Type != ActionSkip,
		MeasuredAt: localTime,
	}
	if applyErr != nil {
		entry.Error = applyErr.Error()
	}

	e.journal.Record(ctx, entry)
}
