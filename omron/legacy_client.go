package omron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	legacyAppID      = "lou30y2xfa9f"
	legacyAPIKey     = "392a4bdff8af4141944d30ca8e3cc860"
	legacyAppVersion = "010.003.00001"
	legacySDKVersion = "000.101"
	legacyUserAgent  = "OmronConnect/" + legacyAppVersion + ".001 CFNetwork/1335.0.3.4 Darwin/21.6.0)"
)

// LegacyClient speaks the query/response generation of the vendor API: a
// single POST supplies device category, serial, user slot and a date
// window, and the response nests results per device model and serial.
type LegacyClient struct {
	server        string
	httpClient    *http.Client
	authorization string
	logger        *slog.Logger
}

func NewLegacyClient(server string) *LegacyClient {
	return &LegacyClient{
		server:     server,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
}

func (c *LegacyClient) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

func (c *LegacyClient) appURL() string {
	return fmt.Sprintf("%s/api/apps/%s/server-code", c.server, legacyAppID)
}

func (c *LegacyClient) postJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", legacyUserAgent)
	request.Header.Set("X-OGSC-SDK-Version", legacySDKVersion)
	request.Header.Set("X-OGSC-App-Version", legacyAppVersion)
	request.Header.Set("X-Kii-AppID", legacyAppID)
	request.Header.Set("X-Kii-AppKey", legacyAPIKey)
	if c.authorization != "" {
		request.Header.Set("Authorization", c.authorization)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	return decodeResponse(response, out)
}

type legacyTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *LegacyClient) Login(ctx context.Context, email, password, country string) (string, error) {
	payload := map[string]any{
		"username": email,
		"password": password,
	}

	return c.obtainToken(ctx, payload)
}

func (c *LegacyClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	payload := map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	return c.obtainToken(ctx, payload)
}

func (c *LegacyClient) obtainToken(ctx context.Context, payload map[string]any) (string, error) {
	var resp legacyTokenResponse
	if err := c.postJSON(ctx, c.server+"/api/oauth2/token", payload, &resp); err != nil {
		return "", err
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return "", ErrUnauthorized
	}

	c.authorization = "Bearer " + resp.AccessToken

	return resp.RefreshToken, nil
}

type legacyMeasureResponse struct {
	ReturnedValue json.RawMessage `json:"returnedValue"`
}

type legacyReturnedValue struct {
	ErrorCode       json.RawMessage `json:"errorCode"`
	DeviceCategory  string          `json:"deviceCategory"`
	DeviceModelList []struct {
		DeviceModel        string `json:"deviceModel"`
		DeviceSerialIDList []struct {
			DeviceSerialID     string          `json:"deviceSerialID"`
			UserNumberInDevice int             `json:"userNumberInDevice"`
			MeasureList        []legacyMeasure `json:"measureList"`
		} `json:"deviceSerialIDList"`
	} `json:"deviceModelList"`
}

type legacyMeasure struct {
	MeasureDateTo int64         `json:"measureDateTo"`
	TimeZone      string        `json:"timeZone"`
	BodyIndexList bodyIndexList `json:"bodyIndexList"`
}

func (c *LegacyClient) GetMeasurements(ctx context.Context, device *Device, searchDateFrom, searchDateTo int64) ([]Measurement, error) {
	if searchDateFrom < 0 {
		searchDateFrom = 0
	}
	if searchDateTo <= 0 {
		searchDateTo = time.Now().UTC().UnixMilli()
	}

	payload := map[string]any{
		"containCorrectedDataFlag": 1,
		"containAllDataTypeFlag":   1,
		"deviceCategory":           device.Category,
		"deviceSerialID":           device.Serial(),
		"userNumberInDevice":       device.User,
		"searchDateFrom":           searchDateFrom,
		"searchDateTo":             searchDateTo,
	}

	var resp legacyMeasureResponse
	if err := c.postJSON(ctx, c.appURL()+"/versions/current/measureData", payload, &resp); err != nil {
		return nil, err
	}

	returned, err := parseReturnedValue(resp.ReturnedValue)
	if err != nil {
		return nil, err
	}
	if returned == nil {
		return nil, nil
	}

	// Error responses arrive embedded in an otherwise successful payload.
	if len(returned.ErrorCode) > 0 && string(returned.ErrorCode) != "null" {
		c.logger.Error("Measurement query returned an error payload",
			"error_code", string(returned.ErrorCode), "serial", device.Serial())
		return nil, nil
	}

	var measurements []Measurement
	for _, model := range returned.DeviceModelList {
		for _, entry := range model.DeviceSerialIDList {
			c.logger.Debug("Walking device entry",
				"model", model.DeviceModel,
				"serial", entry.DeviceSerialID,
				"user", entry.UserNumberInDevice)

			if entry.DeviceSerialID != device.Serial() {
				continue
			}

			switch device.Category {
			case CategoryBPM:
				measurements = append(measurements, c.parseBPMeasurements(entry.MeasureList)...)
			case CategoryScale:
				measurements = append(measurements, c.parseScaleMeasurements(entry.MeasureList)...)
			}
			break
		}
	}

	return measurements, nil
}

// parseReturnedValue tolerates the server wrapping the value in a
// single-element array.
func parseReturnedValue(raw json.RawMessage) (*legacyReturnedValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		trimmed = list[0]
	}

	var value legacyReturnedValue
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &value, nil
}

func (c *LegacyClient) parseBPMeasurements(measures []legacyMeasure) []Measurement {
	var measurements []Measurement
	for _, m := range measures {
		loc, err := time.LoadLocation(m.TimeZone)
		if err != nil {
			c.logger.Warn("Dropping record with unknown timezone", "timezone", m.TimeZone)
			continue
		}

		systolic, okSys := m.BodyIndexList[FigureSystolic]
		diastolic, okDia := m.BodyIndexList[FigureDiastolic]
		pulse, okPulse := m.BodyIndexList[FigurePulse]
		if !okSys || !okDia || !okPulse {
			c.logger.Warn("Dropping blood-pressure record with missing figures",
				"measure_date", m.MeasureDateTo)
			continue
		}

		measurements = append(measurements, &BPMeasurement{
			Systolic:        int(systolic.Value),
			Diastolic:       int(diastolic.Value),
			Pulse:           int(pulse.Value),
			MeasurementDate: m.MeasureDateTo,
			TimeZone:        loc,
			IrregularHB:     m.BodyIndexList.flagFigure(FigureArrhythmiaFlag, false),
			MovementDetect:  m.BodyIndexList.flagFigure(FigureBodyMotionFlag, false),
			CuffWrapDetect:  m.BodyIndexList.flagFigure(FigureCuffWrapCheck, true),
		})
	}

	return measurements
}

func (c *LegacyClient) parseScaleMeasurements(measures []legacyMeasure) []Measurement {
	var measurements []Measurement
	for _, m := range measures {
		loc, err := time.LoadLocation(m.TimeZone)
		if err != nil {
			c.logger.Warn("Dropping record with unknown timezone", "timezone", m.TimeZone)
			continue
		}

		idx, ok := m.BodyIndexList[FigureWeight]
		if !ok {
			c.logger.Warn("Dropping weigh-in record with missing weight figure",
				"measure_date", m.MeasureDateTo)
			continue
		}

		// Weight figures are hundredths in whatever unit the subtype names.
		weight := ConvertWeightToKg(float64(idx.Value)/100, WeightUnit(idx.Subtype))
		if weight <= 0 {
			c.logger.Warn("Dropping weigh-in record with non-positive weight",
				"measure_date", m.MeasureDateTo, "weight", weight)
			continue
		}

		measurements = append(measurements, &WeightMeasurement{
			Weight:                   weight,
			MeasurementDate:          m.MeasureDateTo,
			TimeZone:                 loc,
			BMI:                      m.BodyIndexList.scaledFigure(FigureBMI, 10),
			BodyFatPercentage:        m.BodyIndexList.scaledFigure(FigureBodyFatPercentage, 10),
			RestingMetabolism:        m.BodyIndexList.scaledFigure(FigureBasalMetabolism, 1),
			SkeletalMusclePercentage: m.BodyIndexList.scaledFigure(FigureSkeletalMuscle, 10),
			VisceralFatLevel:         m.BodyIndexList.scaledFigure(FigureVisceralFat, 10),
			MetabolicAge:             m.BodyIndexList.intFigure(FigureBiologicalAge),
		})
	}

	return measurements
}
