package syncer

import (
	"strconv"
	"time"
)

// ComparisonKey is the dedup identity of a measurement: its UTC calendar
// date plus its UTC epoch seconds rendered as a float, whole seconds
// carrying an explicit ".0" fraction. Keys are recomputed from scratch on
// every sync invocation and never persisted; both the freshly fetched side
// and the target-store side run through this one function.
func ComparisonKey(utcMillis int64) string {
	date := time.UnixMilli(utcMillis).UTC().Format("2006-01-02")

	seconds := strconv.FormatFloat(float64(utcMillis)/1000.0, 'f', -1, 64)
	if utcMillis%1000 == 0 {
		seconds = strconv.FormatInt(utcMillis/1000, 10) + ".0"
	}

	return date + ":" + seconds
}
