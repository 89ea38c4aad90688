package omron

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	cloudAppName    = "OCM"
	cloudAppPath    = "/app"
	cloudAppVersion = "7.20.0"
	cloudUserAgent  = "Foresight/" + cloudAppVersion + " (com.omronhealthcare.omronconnect; build:37; iOS 15.8.3) Alamofire/5.9.1"
)

// cloudLbsToKg is the conversion factor the incremental sync API's own
// clients use for the pounds fallback field. It is coarser than the exact
// factor on purpose, to reproduce the values the vendor app would store.
const cloudLbsToKg = 0.453592

// CloudClient speaks the incremental sync generation of the vendor API:
// two GET endpoints, one per category, returning flattened records
// paginated by a continuation key and filterable by last-synced time.
type CloudClient struct {
	server          string
	httpClient      *http.Client
	authorization   string
	email           string
	phoneIdentifier string
	logger          *slog.Logger
}

func NewCloudClient(server string) *CloudClient {
	return &CloudClient{
		server:          server,
		httpClient:      &http.Client{},
		phoneIdentifier: uuid.NewString(),
		logger:          slog.Default(),
	}
}

func (c *CloudClient) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// postJSON sends a compact-JSON body with the Checksum header the vendor's
// servers verify on every POST with content.
func (c *CloudClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	checksum := sha256.Sum256(body)

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", cloudUserAgent)
	request.Header.Set("Checksum", hex.EncodeToString(checksum[:]))
	if c.authorization != "" {
		request.Header.Set("Authorization", c.authorization)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return decodeResponse(response, out)
}

func (c *CloudClient) getJSON(ctx context.Context, path string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("User-Agent", cloudUserAgent)
	if c.authorization != "" {
		request.Header.Set("Authorization", c.authorization)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return decodeResponse(response, out)
}

type cloudTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *CloudClient) Login(ctx context.Context, email, password, country string) (string, error) {
	payload := map[string]any{
		"emailAddress": email,
		"password":     password,
		"country":      country,
		"app":          cloudAppName,
	}

	var resp cloudTokenResponse
	if err := c.postJSON(ctx, cloudAppPath+"/login", payload, &resp); err != nil {
		return "", err
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return "", ErrUnauthorized
	}

	c.authorization = resp.AccessToken
	c.email = email

	return resp.RefreshToken, nil
}

// Refresh re-authenticates through the login endpoint. The server requires
// the account email alongside the refresh token, so SetEmail must have been
// called (or Login used) beforehand.
func (c *CloudClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	payload := map[string]any{
		"app":          cloudAppName,
		"emailAddress": c.email,
		"refreshToken": refreshToken,
	}

	var resp cloudTokenResponse
	if err := c.postJSON(ctx, cloudAppPath+"/login", payload, &resp); err != nil {
		return "", err
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return "", ErrUnauthorized
	}

	c.authorization = resp.AccessToken

	return resp.RefreshToken, nil
}

func (c *CloudClient) SetEmail(email string) {
	c.email = email
}

type cloudSyncResponse struct {
	Data              []cloudRecord `json:"data"`
	NextPaginationKey int64         `json:"nextpaginationKey"`
}

type cloudRecord struct {
	UserNumberInDevice       json.Number `json:"userNumberInDevice"`
	MeasurementDate          json.Number `json:"measurementDate"`
	IsManualEntry            json.Number `json:"isManualEntry"`
	TimeZone                 json.Number `json:"timeZone"`
	Systolic                 json.Number `json:"systolic"`
	Diastolic                json.Number `json:"diastolic"`
	Pulse                    json.Number `json:"pulse"`
	IrregularHB              json.Number `json:"irregularHB"`
	MovementDetect           json.Number `json:"movementDetect"`
	CuffWrapDetect           json.Number `json:"cuffWrapDetect"`
	Weight                   json.Number `json:"weight"`
	WeightInLbs              json.Number `json:"weightInLbs"`
	BMIValue                 json.Number `json:"bmiValue"`
	BodyFatPercentage        json.Number `json:"bodyFatPercentage"`
	RestingMetabolism        json.Number `json:"restingMetabolism"`
	SkeletalMusclePercentage json.Number `json:"skeletalMusclePercentage"`
	VisceralFatLevel         json.Number `json:"visceralFatLevel"`
	Notes                    string      `json:"notes"`
}

func (c *CloudClient) syncPath(category DeviceCategory) (string, error) {
	switch category {
	case CategoryBPM:
		return cloudAppPath + "/v2/sync/bp", nil
	case CategoryScale:
		return cloudAppPath + "/v2/sync/weight", nil
	}

	return "", fmt.Errorf("unsupported device category: %s", category)
}

func (c *CloudClient) GetMeasurements(ctx context.Context, device *Device, searchDateFrom, searchDateTo int64) ([]Measurement, error) {
	path, err := c.syncPath(device.Category)
	if err != nil {
		return nil, err
	}

	lastSynced := ""
	if searchDateFrom > 0 {
		lastSynced = strconv.FormatInt(searchDateFrom, 10)
	}

	var measurements []Measurement
	paginationKey := int64(0)
	for {
		query := url.Values{}
		query.Set("nextpaginationKey", strconv.FormatInt(paginationKey, 10))
		query.Set("lastSyncedTime", lastSynced)
		query.Set("phoneIdentifier", c.phoneIdentifier)

		var resp cloudSyncResponse
		if err := c.getJSON(ctx, path+"?"+query.Encode(), &resp); err != nil {
			return nil, err
		}

		measurements = append(measurements, c.filterRecords(device, resp.Data, searchDateTo)...)

		if resp.NextPaginationKey == 0 || resp.NextPaginationKey == paginationKey || len(resp.Data) == 0 {
			break
		}
		paginationKey = resp.NextPaginationKey
	}

	return measurements, nil
}

func (c *CloudClient) filterRecords(device *Device, records []cloudRecord, searchDateTo int64) []Measurement {
	var out []Measurement
	for _, rec := range records {
		user, err := numberToInt64(rec.UserNumberInDevice)
		if err != nil {
			c.logger.Warn("Dropping record with unreadable user slot", "error", err)
			continue
		}
		if int(user) != device.User {
			c.logger.Debug("Skipping record for other user slot",
				"want", device.User, "got", user)
			continue
		}

		measurementDate, err := numberToInt64(rec.MeasurementDate)
		if err != nil {
			c.logger.Warn("Dropping record with unreadable measurement date", "error", err)
			continue
		}
		if searchDateTo > 0 && measurementDate > searchDateTo {
			c.logger.Debug("Skipping record past the search window",
				"measurement_date", measurementDate, "search_date_to", searchDateTo)
			continue
		}

		// Manual entries are user input, not device telemetry.
		if manual, err := numberToInt64(rec.IsManualEntry); err == nil && manual != 0 {
			c.logger.Debug("Skipping manual entry", "measurement_date", measurementDate)
			continue
		}

		offsetSeconds, err := numberToInt64(rec.TimeZone)
		if err != nil {
			c.logger.Warn("Dropping record with unreadable timezone offset", "error", err)
			continue
		}
		loc := fixedOffsetZone(int(offsetSeconds))

		switch device.Category {
		case CategoryBPM:
			m, err := rec.toBPMeasurement(measurementDate, loc)
			if err != nil {
				c.logger.Warn("Dropping malformed blood-pressure record",
					"measurement_date", measurementDate, "error", err)
				continue
			}
			out = append(out, m)

		case CategoryScale:
			m, err := rec.toWeightMeasurement(measurementDate, loc)
			if err != nil {
				c.logger.Warn("Dropping malformed weigh-in record",
					"measurement_date", measurementDate, "error", err)
				continue
			}
			out = append(out, m)
		}
	}

	return out
}

func (rec *cloudRecord) toBPMeasurement(measurementDate int64, loc *time.Location) (*BPMeasurement, error) {
	systolic, err := numberToInt64(rec.Systolic)
	if err != nil {
		return nil, fmt.Errorf("systolic: %w", err)
	}
	diastolic, err := numberToInt64(rec.Diastolic)
	if err != nil {
		return nil, fmt.Errorf("diastolic: %w", err)
	}
	pulse, err := numberToInt64(rec.Pulse)
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}

	return &BPMeasurement{
		Systolic:        int(systolic),
		Diastolic:       int(diastolic),
		Pulse:           int(pulse),
		MeasurementDate: measurementDate,
		TimeZone:        loc,
		IrregularHB:     numberFlag(rec.IrregularHB, false),
		MovementDetect:  numberFlag(rec.MovementDetect, false),
		CuffWrapDetect:  numberFlag(rec.CuffWrapDetect, true),
		Note:            rec.Notes,
	}, nil
}

func (rec *cloudRecord) toWeightMeasurement(measurementDate int64, loc *time.Location) (*WeightMeasurement, error) {
	weight, err := rec.Weight.Float64()
	if err != nil {
		return nil, fmt.Errorf("weight: %w", err)
	}

	// Some records only carry the pounds-denominated weight.
	if weight <= 0 {
		if lbs, lbsErr := rec.WeightInLbs.Float64(); lbsErr == nil && lbs > 0 {
			weight = lbs * cloudLbsToKg
		}
	}
	if weight <= 0 {
		return nil, fmt.Errorf("non-positive weight")
	}

	return &WeightMeasurement{
		Weight:                   weight,
		MeasurementDate:          measurementDate,
		TimeZone:                 loc,
		BMI:                      optionalNumber(rec.BMIValue),
		BodyFatPercentage:        optionalNumber(rec.BodyFatPercentage),
		RestingMetabolism:        optionalNumber(rec.RestingMetabolism),
		SkeletalMusclePercentage: optionalNumber(rec.SkeletalMusclePercentage),
		VisceralFatLevel:         optionalNumber(rec.VisceralFatLevel),
		Note:                     rec.Notes,
	}, nil
}

// fixedOffsetZone turns the API's signed offset in seconds into a
// fixed-offset timezone at whole-minute resolution, flooring toward
// negative infinity so sub-minute negative offsets round the same way for
// both signs.
func fixedOffsetZone(offsetSeconds int) *time.Location {
	minutes := offsetSeconds / 60
	if offsetSeconds%60 != 0 && offsetSeconds < 0 {
		minutes--
	}

	sign := "+"
	abs := minutes
	if minutes < 0 {
		sign = "-"
		abs = -minutes
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60)

	return time.FixedZone(name, minutes*60)
}

// optionalNumber converts the API's -1 "unknown" sentinel (or an absent
// field) to nil at the parse boundary so downstream code never sees it.
func optionalNumber(n json.Number) *float64 {
	if n == "" {
		return nil
	}

	v, err := n.Float64()
	if err != nil || v < 0 {
		return nil
	}

	return &v
}

func numberFlag(n json.Number, def bool) bool {
	if n == "" {
		return def
	}

	v, err := numberToInt64(n)
	if err != nil {
		return def
	}

	return v != 0
}
