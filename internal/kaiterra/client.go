// Package kaiterra is a client for the Kaiterra public REST v1 API, which
// exposes readings from Laser Egg and Sensedge air-quality devices.
// Developer keys are issued through the account dashboard
// (https://dashboard.kaiterra.com/).
package kaiterra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"airq/internal/config"
	"airq/internal/model"
)

// DefaultBaseURL is the global API endpoint. Mainland-China deployments use
// https://api.kaiterra.cn/v1/ instead.
const DefaultBaseURL = "https://api.kaiterra.com/v1/"

// ErrNoData means the device exists but has not uploaded any data yet.
var ErrNoData = errors.New("kaiterra: device has not uploaded any data yet")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kaiterra: unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an APIError for an unknown resource.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// Client talks to the Kaiterra REST v1 API. It reuses a single http.Client
// so TCP connections to the server are pooled, and is safe for concurrent
// use by multiple goroutines.
type Client struct {
	baseURL string
	auth    Auth
	http    *http.Client
}

// New builds a Client from configuration, selecting the auth scheme by
// cfg.AuthMethod ("url" or "hmac"). The HTTP transport is wrapped with
// otelhttp so outbound calls participate in traces.
func New(cfg config.KaiterraConfig) (*Client, error) {
	var auth Auth
	switch cfg.AuthMethod {
	case "url", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("kaiterra: KAITERRA_API_KEY is required for url auth")
		}
		auth = KeyAuth{Key: cfg.APIKey}
	case "hmac":
		if cfg.ClientID == "" || cfg.HMACKey == "" {
			return nil, fmt.Errorf("kaiterra: KAITERRA_CLIENT_ID and KAITERRA_HMAC_KEY are required for hmac auth")
		}
		auth = HMACAuth{ClientID: cfg.ClientID, SecretHex: cfg.HMACKey}
	default:
		return nil, fmt.Errorf("kaiterra: unknown auth method %q", cfg.AuthMethod)
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		auth:    auth,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// LaserEgg fetches /lasereggs/{id}. The raw response body is returned
// alongside the decoded resource so callers can archive it verbatim.
func (c *Client) LaserEgg(ctx context.Context, id string) (*LaserEgg, []byte, error) {
	raw, err := c.do(ctx, http.MethodGet, "/lasereggs/"+id, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	var le LaserEgg
	if err := json.Unmarshal(raw, &le); err != nil {
		return nil, nil, fmt.Errorf("kaiterra: decode laser egg: %w", err)
	}
	return &le, raw, nil
}

// Sensedge fetches /sensedges/{id}. The raw response body is returned
// alongside the decoded resource so callers can archive it verbatim.
func (c *Client) Sensedge(ctx context.Context, id string) (*Sensedge, []byte, error) {
	raw, err := c.do(ctx, http.MethodGet, "/sensedges/"+id, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	var se Sensedge
	if err := json.Unmarshal(raw, &se); err != nil {
		return nil, nil, fmt.Errorf("kaiterra: decode sensedge: %w", err)
	}
	return &se, raw, nil
}

// LatestReading fetches the device's resource and normalizes its most
// recent sample. Returns ErrNoData when the device has never uploaded.
func (c *Client) LatestReading(ctx context.Context, dev model.Device) (*model.Reading, []byte, error) {
	switch dev.Kind {
	case model.KindLaserEgg:
		le, raw, err := c.LaserEgg(ctx, dev.ID)
		if err != nil {
			return nil, nil, err
		}
		if le.InfoAQI == nil {
			return nil, raw, ErrNoData
		}
		return &model.Reading{
			DeviceID: dev.ID,
			TS:       le.InfoAQI.TS,
			PM25:     le.InfoAQI.Data.PM25,
			PM10:     le.InfoAQI.Data.PM10,
		}, raw, nil
	case model.KindSensedge:
		se, raw, err := c.Sensedge(ctx, dev.ID)
		if err != nil {
			return nil, nil, err
		}
		if se.Latest == nil {
			return nil, raw, ErrNoData
		}
		return &model.Reading{
			DeviceID: dev.ID,
			TS:       se.Latest.TS,
			PM25:     se.Latest.PM25,
			TVOC:     se.Latest.TVOC,
		}, raw, nil
	default:
		return nil, nil, fmt.Errorf("kaiterra: unknown device kind %q", dev.Kind)
	}
}

// do authorizes and executes a request, returning the response body.
// Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, rel string, params url.Values, body []byte) ([]byte, error) {
	hdr := make(http.Header)
	relWithQuery, err := c.auth.Authorize(rel, params, body, hdr)
	if err != nil {
		return nil, err
	}

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
		hdr.Set("Content-Type", "application/json")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+relWithQuery, rd)
	if err != nil {
		return nil, fmt.Errorf("kaiterra: build request: %w", err)
	}
	for k, vs := range hdr {
		req.Header[k] = vs
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kaiterra: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kaiterra: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return b, nil
}
