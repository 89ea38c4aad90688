package omron

import (
	"time"
)

// Measurement is the vendor-neutral reading produced by every client
// variant. The measurement date is always UTC milliseconds since epoch,
// no matter which API generation produced the record; the location is the
// timezone the reading itself reported, which may differ per reading if
// the device travels.
type Measurement interface {
	Date() int64
	Location() *time.Location
	Notes() string
	Category() DeviceCategory
}

// WeightMeasurement is a single weigh-in with optional body-composition
// figures. Fields the device or API generation does not support are nil,
// never zero.
type WeightMeasurement struct {
	Weight                   float64 // kg, always > 0
	MeasurementDate          int64   // UTC epoch milliseconds
	TimeZone                 *time.Location
	BMI                      *float64
	BodyFatPercentage        *float64
	RestingMetabolism        *float64 // kcal/day basal
	SkeletalMusclePercentage *float64
	VisceralFatLevel         *float64
	MetabolicAge             *int
	Note                     string
}

func (m *WeightMeasurement) Date() int64              { return m.MeasurementDate }
func (m *WeightMeasurement) Location() *time.Location { return m.TimeZone }
func (m *WeightMeasurement) Notes() string            { return m.Note }
func (m *WeightMeasurement) Category() DeviceCategory { return CategoryScale }

// BPMeasurement is a single blood-pressure reading. CuffWrapDetect is true
// when the cuff was properly worn, i.e. the flag is inverted relative to an
// error semantic.
type BPMeasurement struct {
	Systolic        int   // mmHg
	Diastolic       int   // mmHg
	Pulse           int   // bpm
	MeasurementDate int64 // UTC epoch milliseconds
	TimeZone        *time.Location
	IrregularHB     bool
	MovementDetect  bool
	CuffWrapDetect  bool
	Note            string
}

func (m *BPMeasurement) Date() int64              { return m.MeasurementDate }
func (m *BPMeasurement) Location() *time.Location { return m.TimeZone }
func (m *BPMeasurement) Notes() string            { return m.Note }
func (m *BPMeasurement) Category() DeviceCategory { return CategoryBPM }

// LocalTime converts a measurement's UTC instant to wall-clock time in the
// timezone the reading reported.
func LocalTime(m Measurement) time.Time {
	return time.UnixMilli(m.Date()).In(m.Location())
}
