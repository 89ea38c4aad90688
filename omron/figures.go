package omron

import (
	"encoding/json"
	"fmt"
)

// FigureCode identifies one physiological quantity inside a raw measurement
// record of the query/response API. The codes come from the vendor's mobile
// app and are fixed; each figure additionally carries a unit subtype that
// disambiguates the physical unit.
type FigureCode string

const (
	FigureSystolic          FigureCode = "1"
	FigureDiastolic         FigureCode = "2"
	FigurePulse             FigureCode = "3"
	FigureArrhythmiaFlag    FigureCode = "6"
	FigureBodyMotionFlag    FigureCode = "7"
	FigureCuffWrapCheck     FigureCode = "8"
	FigureWeight            FigureCode = "257"
	FigureBodyFatPercentage FigureCode = "259"
	FigureBasalMetabolism   FigureCode = "260"
	FigureSkeletalMuscle    FigureCode = "261"
	FigureBMI               FigureCode = "262"
	FigureBiologicalAge     FigureCode = "263"
	FigureVisceralFat       FigureCode = "264"
)

// bodyIndex is one entry of a record's bodyIndexList: a fixed 4-tuple of
// figure value, unit subtype, a reserved field and the measurement id.
type bodyIndex struct {
	Value         int64
	Subtype       int64
	Reserved      int64
	MeasurementID int64
}

func (b *bodyIndex) UnmarshalJSON(data []byte) error {
	var raw []json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw) < 4 {
		return fmt.Errorf("body index tuple has %d elements, want 4", len(raw))
	}

	fields := []*int64{&b.Value, &b.Subtype, &b.Reserved, &b.MeasurementID}
	for i, dst := range fields {
		v, err := numberToInt64(raw[i])
		if err != nil {
			return fmt.Errorf("body index element %d: %w", i, err)
		}
		*dst = v
	}

	return nil
}

func numberToInt64(n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}

	f, err := n.Float64()
	if err != nil {
		return 0, err
	}

	return int64(f), nil
}

type bodyIndexList map[FigureCode]bodyIndex

// scaledFigure returns the figure's value divided by scale, or nil when the
// code is absent or carries the vendor's -1 "unknown" sentinel.
func (l bodyIndexList) scaledFigure(code FigureCode, scale float64) *float64 {
	idx, ok := l[code]
	if !ok || idx.Value < 0 {
		return nil
	}

	v := float64(idx.Value) / scale
	return &v
}

func (l bodyIndexList) intFigure(code FigureCode) *int {
	idx, ok := l[code]
	if !ok || idx.Value < 0 {
		return nil
	}

	v := int(idx.Value)
	return &v
}

// flagFigure reports the figure as a boolean, falling back to def when the
// code is absent.
func (l bodyIndexList) flagFigure(code FigureCode, def bool) bool {
	idx, ok := l[code]
	if !ok {
		return def
	}

	return idx.Value != 0
}
