package models

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/omramin/omramin/internal/syncer"
)

// SyncJournalEntry is one reconciliation decision, persisted for auditing
// what a sync run did or would have done. The engine only ever writes
// these; dedup decisions always come from querying the target store fresh.
type SyncJournalEntry struct {
	gorm.Model
	RunID         string `gorm:"index"`
	DeviceName    string
	Category      string
	Action        string
	ComparisonKey string
	Handle        string
	Applied       bool
	Error         string
	MeasuredAt    time.Time
}

// JournalWriter persists engine decisions. It satisfies syncer.Journal.
type JournalWriter struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func (w *JournalWriter) Record(ctx context.Context, entry syncer.JournalEntry) {
	if w.DB == nil {
		return
	}

	row := SyncJournalEntry{
		RunID:         entry.RunID,
		DeviceName:    entry.DeviceName,
		Category:      entry.Category,
		Action:        entry.Action,
		ComparisonKey: entry.Key,
		Handle:        entry.Handle,
		Applied:       entry.Applied,
		Error:         entry.Error,
		MeasuredAt:    entry.MeasuredAt,
	}

	if err := w.DB.WithContext(ctx).Create(&row).Error; err != nil && w.Logger != nil {
		w.Logger.Error("Failed to journal sync decision", "error", err)
	}
}
