package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cityweather/backend/internal/domain"
)

// DefaultUpstreamTimeout bounds a single provider call
const DefaultUpstreamTimeout = 10 * time.Second

const currentWeatherPath = "/data/2.5/weather"

// maxResponseBytes caps the provider body; real payloads are under 1 KiB
const maxResponseBytes = 1 << 20

// FetcherConfig is injected into the Fetcher at construction time
type FetcherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set
	HTTPClient *http.Client
}

// Fetcher calls the OpenWeatherMap current weather endpoint
type Fetcher struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewFetcher creates a new weather fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultUpstreamTimeout
		}
		client = &http.Client{
			Timeout: timeout,
		}
	}

	return &Fetcher{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + currentWeatherPath,
		httpClient: client,
	}
}

// Fetch performs one provider round-trip for q.
//
// The body is decoded whatever the transport status: the provider reports
// failures such as "city not found" inside the payload, and those are
// returned as data for the caller to inspect via ProviderError. Transport
// failures, oversized or malformed bodies and payloads that fail
// WeatherResult.Validate become *domain.UpstreamError.
func (f *Fetcher) Fetch(ctx context.Context, q domain.WeatherQuery) (*domain.WeatherResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(q.City), nil)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "build request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "request", Cause: redactKey(err, f.apiKey)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &domain.UpstreamError{Op: "read", Cause: err}
	}
	if len(body) > maxResponseBytes {
		return nil, &domain.UpstreamError{
			Op:    "read",
			Cause: fmt.Errorf("weather: response exceeds %d bytes", maxResponseBytes),
		}
	}

	// Unmarshal, unlike a streaming Decode, rejects trailing data
	var result domain.WeatherResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &domain.UpstreamError{
			Op:    "decode",
			Cause: fmt.Errorf("weather: failed to decode response (HTTP %d): %w", resp.StatusCode, err),
		}
	}

	if err := result.Validate(); err != nil {
		return nil, &domain.UpstreamError{Op: "validate", Cause: fmt.Errorf("weather: %w", err)}
	}

	return &result, nil
}

func (f *Fetcher) requestURL(city string) string {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", f.apiKey)
	params.Set("units", "metric")
	return f.endpoint + "?" + params.Encode()
}

// redactKey strips the credential from *url.Error messages, which embed the
// full request URL
func redactKey(err error, apiKey string) error {
	if apiKey == "" {
		return err
	}
	if urlErr, ok := err.(*url.Error); ok {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, url.QueryEscape(apiKey), "REDACTED"),
			Err: urlErr.Err,
		}
	}
	return err
}
