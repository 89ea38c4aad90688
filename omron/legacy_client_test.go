package omron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLegacyDevice(t *testing.T, category string) *Device {
	t.Helper()

	device, err := NewDevice("test", "11:22:33:44:55:66", category, 1, true)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	return device
}

func TestLegacyClientLogin(t *testing.T) {
	var gotHeaders http.Header
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/oauth2/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		fmt.Fprint(w, `{"access_token": "acc-123", "refresh_token": "ref-456"}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	refreshToken, err := client.Login(context.Background(), "user@example.com", "secret", "SG")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if refreshToken != "ref-456" {
		t.Errorf("refresh token = %q, want %q", refreshToken, "ref-456")
	}
	if client.authorization != "Bearer acc-123" {
		t.Errorf("authorization = %q, want bearer access token", client.authorization)
	}
	if gotHeaders.Get("X-Kii-AppID") == "" || gotHeaders.Get("X-Kii-AppKey") == "" {
		t.Error("app identification headers missing")
	}
	if gotBody["username"] != "user@example.com" {
		t.Errorf("username = %v, want the login email", gotBody["username"])
	}
}

func TestLegacyClientLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	if _, err := client.Login(context.Background(), "user@example.com", "wrong", "SG"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLegacyClientGetMeasurementsScale(t *testing.T) {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		fmt.Fprint(w, `{"returnedValue": {
			"deviceCategory": "1",
			"deviceModelList": [{
				"deviceModel": "HBF-702T",
				"deviceSerialIDList": [{
					"deviceSerialID": "665544feff332211",
					"userNumberInDevice": 1,
					"measureList": [{
						"measureDateTo": 1704268800000,
						"timeZone": "Europe/Berlin",
						"bodyIndexList": {
							"257": [7000, 8195, 0, 1],
							"259": [235, 24832, 0, 1],
							"262": [221, 0, 0, 1],
							"263": [-1, 0, 0, 1],
							"264": [-1, 0, 0, 1]
						}
					}]
				}]
			}]
		}}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	device := testLegacyDevice(t, "SCALE")

	measurements, err := client.GetMeasurements(context.Background(), device, 1704200000000, 1704300000000)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}
	if len(measurements) != 1 {
		t.Fatalf("got %d measurements, want 1", len(measurements))
	}

	if gotPayload["deviceSerialID"] != "665544feff332211" {
		t.Errorf("request serial = %v, want the device serial", gotPayload["deviceSerialID"])
	}

	weighIn, ok := measurements[0].(*WeightMeasurement)
	if !ok {
		t.Fatalf("measurement type = %T, want *WeightMeasurement", measurements[0])
	}
	if weighIn.Weight != 70.0 {
		t.Errorf("Weight = %v, want 70.0", weighIn.Weight)
	}
	if weighIn.MeasurementDate != 1704268800000 {
		t.Errorf("MeasurementDate = %v, want 1704268800000", weighIn.MeasurementDate)
	}
	if weighIn.TimeZone == nil || weighIn.TimeZone.String() != "Europe/Berlin" {
		t.Errorf("TimeZone = %v, want Europe/Berlin", weighIn.TimeZone)
	}
	if weighIn.BodyFatPercentage == nil || *weighIn.BodyFatPercentage != 23.5 {
		t.Errorf("BodyFatPercentage = %v, want 23.5", weighIn.BodyFatPercentage)
	}
	if weighIn.BMI == nil || *weighIn.BMI != 22.1 {
		t.Errorf("BMI = %v, want 22.1", weighIn.BMI)
	}
	if weighIn.MetabolicAge != nil {
		t.Errorf("MetabolicAge = %v, want nil for the unknown sentinel", *weighIn.MetabolicAge)
	}
	if weighIn.VisceralFatLevel != nil {
		t.Errorf("VisceralFatLevel = %v, want nil for the unknown sentinel", *weighIn.VisceralFatLevel)
	}
}

func TestLegacyClientGetMeasurementsBloodPressure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The returned value arrives wrapped in a single-element array.
		fmt.Fprint(w, `{"returnedValue": [{
			"deviceCategory": "0",
			"deviceModelList": [{
				"deviceModel": "HEM-7600T",
				"deviceSerialIDList": [{
					"deviceSerialID": "665544feff332211",
					"userNumberInDevice": 1,
					"measureList": [
						{
							"measureDateTo": 1704268800000,
							"timeZone": "UTC",
							"bodyIndexList": {
								"1": [120, 0, 0, 1],
								"2": [80, 0, 0, 1],
								"3": [60, 0, 0, 1],
								"6": [1, 0, 0, 1]
							}
						},
						{
							"measureDateTo": 1704268900000,
							"timeZone": "UTC",
							"bodyIndexList": {
								"1": [130, 0, 0, 2],
								"2": [85, 0, 0, 2]
							}
						}
					]
				}]
			}]
		}]}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	device := testLegacyDevice(t, "BPM")

	measurements, err := client.GetMeasurements(context.Background(), device, 0, 0)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}

	// The second record lacks a pulse figure and must be dropped.
	if len(measurements) != 1 {
		t.Fatalf("got %d measurements, want 1", len(measurements))
	}

	bp, ok := measurements[0].(*BPMeasurement)
	if !ok {
		t.Fatalf("measurement type = %T, want *BPMeasurement", measurements[0])
	}
	if bp.Systolic != 120 || bp.Diastolic != 80 || bp.Pulse != 60 {
		t.Errorf("reading = %d/%d @ %d, want 120/80 @ 60", bp.Systolic, bp.Diastolic, bp.Pulse)
	}
	if !bp.IrregularHB {
		t.Error("IrregularHB = false, want true")
	}
	if bp.MovementDetect {
		t.Error("MovementDetect = true, want the false default when absent")
	}
	if !bp.CuffWrapDetect {
		t.Error("CuffWrapDetect = false, want the true default when absent")
	}
}

func TestLegacyClientErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnedValue": {"errorCode": "40100"}}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	device := testLegacyDevice(t, "SCALE")

	measurements, err := client.GetMeasurements(context.Background(), device, 0, 0)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}
	if len(measurements) != 0 {
		t.Errorf("got %d measurements, want 0 for an error payload", len(measurements))
	}
}

func TestLegacyClientOtherSerialIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnedValue": {
			"deviceModelList": [{
				"deviceModel": "HBF-702T",
				"deviceSerialIDList": [{
					"deviceSerialID": "aaaaaaaaaaaaaaaa",
					"userNumberInDevice": 1,
					"measureList": [{
						"measureDateTo": 1704268800000,
						"timeZone": "UTC",
						"bodyIndexList": {"257": [7000, 8195, 0, 1]}
					}]
				}]
			}]
		}}`)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	device := testLegacyDevice(t, "SCALE")

	measurements, err := client.GetMeasurements(context.Background(), device, 0, 0)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}
	if len(measurements) != 0 {
		t.Errorf("got %d measurements, want 0 for another device's serial", len(measurements))
	}
}

func TestLegacyClientUnauthorizedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewLegacyClient(server.URL)
	device := testLegacyDevice(t, "SCALE")

	if _, err := client.GetMeasurements(context.Background(), device, 0, 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("GetMeasurements() error = %v, want ErrUnauthorized", err)
	}
}
