// v1
// internal/backends/http.go
package backends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoData is returned when a provider answered successfully but carried
// no usable value for the requested signal.
var ErrNoData = errors.New("no data in provider response")

// ParseFunc extracts the scalar value from a provider's JSON body.
type ParseFunc func(body []byte) (float64, error)

// HTTPBackend fetches one scalar from a JSON HTTP endpoint with bearer
// authentication. It is a thin adapter: rate limits and token refresh
// belong to the provider side, not here.
type HTTPBackend struct {
	name  string
	url   string
	token string
	h     *http.Client
	parse ParseFunc
}

// NewHTTP builds a backend for the given provider endpoint. An empty URL
// or token fails Validate, which the resolver reports as a skipped rank.
func NewHTTP(name, url, token string, timeout time.Duration, parse ParseFunc) *HTTPBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBackend{
		name:  name,
		url:   url,
		token: token,
		h:     &http.Client{Timeout: timeout},
		parse: parse,
	}
}

func (b *HTTPBackend) Name() string { return b.name }

func (b *HTTPBackend) Validate() error {
	if strings.TrimSpace(b.url) == "" {
		return errors.New("endpoint URL not configured")
	}
	if strings.TrimSpace(b.token) == "" {
		return errors.New("access token not configured")
	}
	return nil
}

func (b *HTTPBackend) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.h.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return 0, fmt.Errorf("%s: access token expired or invalid", b.name)
	case http.StatusTooManyRequests:
		return 0, fmt.Errorf("%s: rate limit exceeded", b.name)
	default:
		return 0, fmt.Errorf("%s returned status %d", b.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	return b.parse(body)
}

// ParseFitbitHRV reads the daily RMSSD from a Fitbit HRV response:
// {"hrv":[{"value":{"dailyRmssd":62.5},...}]}.
func ParseFitbitHRV(body []byte) (float64, error) {
	var payload struct {
		HRV []struct {
			Value struct {
				DailyRmssd *float64 `json:"dailyRmssd"`
			} `json:"value"`
		} `json:"hrv"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}
	if len(payload.HRV) == 0 || payload.HRV[0].Value.DailyRmssd == nil {
		return 0, ErrNoData
	}
	return *payload.HRV[0].Value.DailyRmssd, nil
}

// ParseOuraHRV reads the average HRV from an Oura sleep response:
// {"data":[{"average_hrv":55.0,...}]}.
func ParseOuraHRV(body []byte) (float64, error) {
	var payload struct {
		Data []struct {
			AverageHRV *float64 `json:"average_hrv"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}
	if len(payload.Data) == 0 || payload.Data[0].AverageHRV == nil {
		return 0, ErrNoData
	}
	return *payload.Data[0].AverageHRV, nil
}

// ParseValueField reads a flat {"value": N} body, the shape used by the
// notification and noise relay endpoints.
func ParseValueField(body []byte) (float64, error) {
	var payload struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, err
	}
	if payload.Value == nil {
		return 0, ErrNoData
	}
	return *payload.Value, nil
}
