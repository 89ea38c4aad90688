package omron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized marks authentication failures: bad credentials or an
// expired/invalid refresh token. Callers must treat it as "cannot proceed"
// and not attempt a partial sync.
var ErrUnauthorized = errors.New("omron: unauthorized")

// Client is the "source connect" contract shared by both generations of
// the vendor API. Login and Refresh yield an opaque refresh token; the
// access token is kept inside the client. GetMeasurements returns the
// unified measurement model regardless of the wire shape underneath,
// filtered to the requested device and UTC millisecond window.
type Client interface {
	Login(ctx context.Context, email, password, country string) (string, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	GetMeasurements(ctx context.Context, device *Device, searchDateFrom, searchDateTo int64) ([]Measurement, error)
}

// legacyServerHost identifies the endpoint that still speaks the
// query/response API; every other endpoint speaks the incremental sync API.
const legacyServerHost = "data-sg.omronconnect.com"

// NewClient selects the client implementation for a server endpoint. The
// dispatch is a static mapping decided once per account; implementations
// are never mixed within a sync run.
func NewClient(server string) Client {
	if strings.Contains(server, legacyServerHost) {
		return NewLegacyClient(server)
	}

	return NewCloudClient(server)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out == nil {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
