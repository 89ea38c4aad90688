package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/omramin/omramin/internal/syncer"
	"github.com/omramin/omramin/omron"
)

// ErrUnauthorized marks a rejected or expired Garmin Connect token.
var ErrUnauthorized = errors.New("garmin: unauthorized")

const (
	DefaultBaseURL = "https://connectapi.garmin.com"

	userAgent = "GCM-iOS-5.7.2.1"

	weightRangePath = "/weight-service/weight/dateRange"
	weightAddPath   = "/weight-service/user-weight"
	weightDelete    = "/weight-service/weight/%s/byversion/%s"
	bpRangePath     = "/bloodpressure-service/bloodpressure/range/%s/%s"
	bpAddPath       = "/bloodpressure-service/bloodpressure"
	bpDelete        = "/bloodpressure-service/bloodpressure/%s/%s"
)

// Client is the target-store gateway: it answers "what already exists in
// this window" as a comparison-key lookup and applies adds and deletes.
// The token is an opaque bearer string; the session/credential flow that
// produces it lives outside this package. Client satisfies syncer.Store.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
}

func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, response.Status)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s", response.Status)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// ExistingForWindow fetches the records already present for the window and
// keys them by comparison key. The window is local wall-clock time, which
// is how Garmin Connect indexes its entries.
func (c *Client) ExistingForWindow(ctx context.Context, category omron.DeviceCategory, start, end time.Time) (syncer.Existing, error) {
	switch category {
	case omron.CategoryScale:
		return c.existingWeighIns(ctx, start, end)
	case omron.CategoryBPM:
		return c.existingBloodPressure(ctx, start, end)
	}

	return nil, fmt.Errorf("garmin: unsupported device category %s", category)
}

type weighInRange struct {
	DailyWeightSummaries []struct {
		AllWeightMetrics []struct {
			SamplePk     int64 `json:"samplePk"`
			TimestampGMT int64 `json:"timestampGMT"`
		} `json:"allWeightMetrics"`
	} `json:"dailyWeightSummaries"`
}

func (c *Client) existingWeighIns(ctx context.Context, start, end time.Time) (syncer.Existing, error) {
	path := fmt.Sprintf("%s?startDate=%s&endDate=%s",
		weightRangePath, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var resp weighInRange
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	existing := syncer.Existing{}
	count := 0
	for _, day := range resp.DailyWeightSummaries {
		for _, metric := range day.AllWeightMetrics {
			key := syncer.ComparisonKey(metric.TimestampGMT)
			existing[key] = append(existing[key], strconv.FormatInt(metric.SamplePk, 10))
			count++
		}
	}

	c.logger.Info("Downloaded weigh-ins from target store", "count", count)

	return existing, nil
}

type bloodPressureRange struct {
	MeasurementSummaries []struct {
		Measurements []struct {
			Version                 int64  `json:"version"`
			MeasurementTimestampGMT string `json:"measurementTimestampGMT"`
		} `json:"measurements"`
	} `json:"measurementSummaries"`
}

func (c *Client) existingBloodPressure(ctx context.Context, start, end time.Time) (syncer.Existing, error) {
	path := fmt.Sprintf(bpRangePath, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var resp bloodPressureRange
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	existing := syncer.Existing{}
	count := 0
	for _, summary := range resp.MeasurementSummaries {
		for _, m := range summary.Measurements {
			ts, err := parseGMTTimestamp(m.MeasurementTimestampGMT)
			if err != nil {
				c.logger.Warn("Skipping record with unreadable timestamp",
					"timestamp", m.MeasurementTimestampGMT, "error", err)
				continue
			}

			key := syncer.ComparisonKey(ts)
			existing[key] = append(existing[key], strconv.FormatInt(m.Version, 10))
			count++
		}
	}

	c.logger.Info("Downloaded blood-pressure measurements from target store", "count", count)

	return existing, nil
}

// parseGMTTimestamp reads Garmin's zone-less GMT timestamps, with or
// without fractional seconds, as UTC epoch milliseconds.
func parseGMTTimestamp(s string) (int64, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("unrecognized timestamp %q", s)
}

type bodyCompositionPayload struct {
	DateTimestamp     string   `json:"dateTimestamp"`
	GMTTimestamp      string   `json:"gmtTimestamp"`
	UnitKey           string   `json:"unitKey"`
	SourceType        string   `json:"sourceType"`
	Weight            float64  `json:"weight"`
	PercentFat        *float64 `json:"percentFat,omitempty"`
	MuscleMass        *float64 `json:"muscleMass,omitempty"`
	BasalMet          *float64 `json:"basalMet,omitempty"`
	MetabolicAge      *int     `json:"metabolicAge,omitempty"`
	VisceralFatRating *float64 `json:"visceralFatRating,omitempty"`
	BMI               *float64 `json:"bmi,omitempty"`
}

// AddWeighIn writes a weigh-in with its body-composition figures. Unknown
// figures are omitted from the payload entirely rather than sent as
// sentinel values.
func (c *Client) AddWeighIn(ctx context.Context, m *omron.WeightMeasurement) error {
	local := omron.LocalTime(m)
	gmt := time.UnixMilli(m.MeasurementDate).UTC()

	payload := bodyCompositionPayload{
		DateTimestamp:     local.Format("2006-01-02T15:04:05"),
		GMTTimestamp:      gmt.Format("2006-01-02T15:04:05"),
		UnitKey:           "kg",
		SourceType:        "MANUAL",
		Weight:            m.Weight,
		PercentFat:        m.BodyFatPercentage,
		MuscleMass:        m.SkeletalMusclePercentage,
		BasalMet:          m.RestingMetabolism,
		MetabolicAge:      m.MetabolicAge,
		VisceralFatRating: m.VisceralFatLevel,
		BMI:               m.BMI,
	}

	return c.do(ctx, http.MethodPost, weightAddPath, payload, nil)
}

type bloodPressurePayload struct {
	MeasurementTimestampLocal string `json:"measurementTimestampLocal"`
	MeasurementTimestampGMT   string `json:"measurementTimestampGMT"`
	Systolic                  int    `json:"systolic"`
	Diastolic                 int    `json:"diastolic"`
	Pulse                     int    `json:"pulse"`
	SourceType                string `json:"sourceType"`
	Notes                     string `json:"notes,omitempty"`
}

func (c *Client) AddBloodPressure(ctx context.Context, m *omron.BPMeasurement) error {
	local := omron.LocalTime(m)
	gmt := time.UnixMilli(m.MeasurementDate).UTC()

	payload := bloodPressurePayload{
		MeasurementTimestampLocal: local.Format("2006-01-02T15:04:05"),
		MeasurementTimestampGMT:   gmt.Format("2006-01-02T15:04:05"),
		Systolic:                  m.Systolic,
		Diastolic:                 m.Diastolic,
		Pulse:                     m.Pulse,
		SourceType:                "MANUAL",
		Notes:                     m.Note,
	}

	return c.do(ctx, http.MethodPost, bpAddPath, payload, nil)
}

func (c *Client) DeleteWeighIn(ctx context.Context, handle string, date string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf(weightDelete, date, handle), nil, nil)
}

func (c *Client) DeleteBloodPressure(ctx context.Context, handle string, date string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf(bpDelete, date, handle), nil, nil)
}
