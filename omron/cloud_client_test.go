package omron

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testCloudDevice(t *testing.T, category string) *Device {
	t.Helper()

	device, err := NewDevice("test", "11:22:33:44:55:66", category, 1, true)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	return device
}

func TestCloudClientLoginChecksum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/login" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}

		sum := sha256.Sum256(body)
		if got := r.Header.Get("Checksum"); got != hex.EncodeToString(sum[:]) {
			t.Errorf("Checksum header = %q, want the body digest", got)
		}

		fmt.Fprint(w, `{"accessToken": "acc-123", "refreshToken": "ref-456"}`)
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	refreshToken, err := client.Login(context.Background(), "user@example.com", "secret", "DE")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if refreshToken != "ref-456" {
		t.Errorf("refresh token = %q, want %q", refreshToken, "ref-456")
	}
	if client.authorization != "acc-123" {
		t.Errorf("authorization = %q, want the raw access token", client.authorization)
	}
}

func TestCloudClientRefreshSendsEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if want := `"emailAddress":"user@example.com"`; !strings.Contains(string(body), want) {
			t.Errorf("request body %q does not carry %q", body, want)
		}

		fmt.Fprint(w, `{"accessToken": "acc-2", "refreshToken": "ref-2"}`)
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	client.SetEmail("user@example.com")

	refreshToken, err := client.Refresh(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshToken != "ref-2" {
		t.Errorf("refresh token = %q, want %q", refreshToken, "ref-2")
	}
}

func TestCloudClientGetMeasurementsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/app/v2/sync/weight" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("lastSyncedTime") != "1704200000000" {
			t.Errorf("lastSyncedTime = %q, want %q", r.URL.Query().Get("lastSyncedTime"), "1704200000000")
		}

		fmt.Fprint(w, `{"data": [
			{"userNumberInDevice": 1, "measurementDate": 1704268800000, "isManualEntry": 0,
			 "timeZone": 7200, "weight": 70.5, "bmiValue": 22.1, "bodyFatPercentage": -1},
			{"userNumberInDevice": 2, "measurementDate": 1704268800001, "isManualEntry": 0,
			 "timeZone": 7200, "weight": 80},
			{"userNumberInDevice": 1, "measurementDate": 1704268800002, "isManualEntry": 1,
			 "timeZone": 7200, "weight": 70},
			{"userNumberInDevice": 1, "measurementDate": 1904268800000, "isManualEntry": 0,
			 "timeZone": 7200, "weight": 70},
			{"userNumberInDevice": 1, "measurementDate": 1704268800003, "isManualEntry": 0,
			 "timeZone": -19800, "weight": 0, "weightInLbs": 155.4}
		], "nextpaginationKey": 0}`)
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	device := testCloudDevice(t, "SCALE")

	measurements, err := client.GetMeasurements(context.Background(), device, 1704200000000, 1704300000000)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}

	// Other user slots, manual entries and records past the window are
	// filtered out; the pounds-only record survives via the fallback field.
	if len(measurements) != 2 {
		t.Fatalf("got %d measurements, want 2", len(measurements))
	}

	first, ok := measurements[0].(*WeightMeasurement)
	if !ok {
		t.Fatalf("measurement type = %T, want *WeightMeasurement", measurements[0])
	}
	if first.Weight != 70.5 {
		t.Errorf("Weight = %v, want 70.5", first.Weight)
	}
	if first.BMI == nil || *first.BMI != 22.1 {
		t.Errorf("BMI = %v, want 22.1", first.BMI)
	}
	if first.BodyFatPercentage != nil {
		t.Errorf("BodyFatPercentage = %v, want nil for the unknown sentinel", *first.BodyFatPercentage)
	}

	_, offset := zoneOf(first)
	if offset != 7200 {
		t.Errorf("timezone offset = %d, want 7200", offset)
	}

	second := measurements[1].(*WeightMeasurement)
	if want := 155.4 * 0.453592; math.Abs(second.Weight-want) > 1e-9 {
		t.Errorf("fallback Weight = %v, want %v", second.Weight, want)
	}
	_, offset = zoneOf(second)
	if offset != -19800 {
		t.Errorf("timezone offset = %d, want -19800", offset)
	}
}

func zoneOf(m Measurement) (string, int) {
	return time.UnixMilli(m.Date()).In(m.Location()).Zone()
}

func TestCloudClientPagination(t *testing.T) {
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		switch r.URL.Query().Get("nextpaginationKey") {
		case "0":
			fmt.Fprint(w, `{"data": [
				{"userNumberInDevice": 1, "measurementDate": 1704268800000, "isManualEntry": 0,
				 "timeZone": 0, "systolic": 120, "diastolic": 80, "pulse": 60}
			], "nextpaginationKey": 17}`)
		case "17":
			fmt.Fprint(w, `{"data": [
				{"userNumberInDevice": 1, "measurementDate": 1704268900000, "isManualEntry": 0,
				 "timeZone": 0, "systolic": 130, "diastolic": 85, "pulse": 65, "movementDetect": 1, "cuffWrapDetect": 0}
			], "nextpaginationKey": 0}`)
		default:
			t.Errorf("unexpected pagination key %q", r.URL.Query().Get("nextpaginationKey"))
			fmt.Fprint(w, `{"data": [], "nextpaginationKey": 0}`)
		}
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	device := testCloudDevice(t, "BPM")

	measurements, err := client.GetMeasurements(context.Background(), device, 0, 0)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}

	if requests != 2 {
		t.Errorf("made %d requests, want 2", requests)
	}
	if len(measurements) != 2 {
		t.Fatalf("got %d measurements, want 2", len(measurements))
	}

	first := measurements[0].(*BPMeasurement)
	if first.Systolic != 120 || first.Diastolic != 80 || first.Pulse != 60 {
		t.Errorf("reading = %d/%d @ %d, want 120/80 @ 60", first.Systolic, first.Diastolic, first.Pulse)
	}
	if !first.CuffWrapDetect {
		t.Error("CuffWrapDetect = false, want the true default when absent")
	}

	second := measurements[1].(*BPMeasurement)
	if !second.MovementDetect {
		t.Error("MovementDetect = false, want true")
	}
	if second.CuffWrapDetect {
		t.Error("CuffWrapDetect = true, want false for an explicit 0")
	}
}

func TestCloudClientNoUpperBound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [
			{"userNumberInDevice": 1, "measurementDate": 9904268800000, "isManualEntry": 0,
			 "timeZone": 0, "weight": 70}
		], "nextpaginationKey": 0}`)
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	device := testCloudDevice(t, "SCALE")

	measurements, err := client.GetMeasurements(context.Background(), device, 0, 0)
	if err != nil {
		t.Fatalf("GetMeasurements() error = %v", err)
	}
	if len(measurements) != 1 {
		t.Errorf("got %d measurements, want 1 when no upper bound is set", len(measurements))
	}
}

func TestCloudClientUnauthorizedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewCloudClient(server.URL)
	device := testCloudDevice(t, "SCALE")

	if _, err := client.GetMeasurements(context.Background(), device, 0, 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("GetMeasurements() error = %v, want ErrUnauthorized", err)
	}
}

func TestFixedOffsetZone(t *testing.T) {
	tests := []struct {
		seconds    int
		name       string
		wantOffset int
	}{
		{7200, "UTC+02:00", 7200},
		{-19800, "UTC-05:30", -19800},
		{0, "UTC+00:00", 0},
		// Sub-minute offsets floor toward negative infinity for both signs.
		{5430, "UTC+01:30", 5400},
		{-5430, "UTC-01:31", -5460},
	}

	for _, tt := range tests {
		loc := fixedOffsetZone(tt.seconds)
		if loc.String() != tt.name {
			t.Errorf("fixedOffsetZone(%d) = %q, want %q", tt.seconds, loc.String(), tt.name)
		}

		_, offset := time.Now().In(loc).Zone()
		if offset != tt.wantOffset {
			t.Errorf("fixedOffsetZone(%d) offset = %d, want %d", tt.seconds, offset, tt.wantOffset)
		}
	}
}
