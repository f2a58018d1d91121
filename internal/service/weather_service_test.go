package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityweather/backend/internal/domain"
)

const nairobiPayload = `{
	"coord": {"lon": 36.8167, "lat": -1.2833},
	"weather": [{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}],
	"base": "stations",
	"main": {"temp": 22.5, "feels_like": 22.1, "temp_min": 21.0, "temp_max": 23.9, "pressure": 1018, "humidity": 53},
	"visibility": 10000,
	"wind": {"speed": 4.63, "deg": 70},
	"clouds": {"all": 0},
	"dt": 1700000000,
	"sys": {"type": 1, "id": 2558, "country": "KE", "sunrise": 1699974000, "sunset": 1700017600},
	"timezone": 10800,
	"id": 184745,
	"name": "Nairobi",
	"cod": 200
}`

func newProvider(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewFetcher_Defaults(t *testing.T) {
	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: "https://api.openweathermap.org/"})

	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", f.endpoint)
	assert.Equal(t, DefaultUpstreamTimeout, f.httpClient.Timeout)

	custom := &http.Client{}
	assert.Same(t, custom, NewFetcher(FetcherConfig{HTTPClient: custom}).httpClient)
}

func TestFetcher_Fetch_Success(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"q":     r.URL.Query().Get("q"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, nairobiPayload)
	})

	f := NewFetcher(FetcherConfig{APIKey: "test-key", BaseURL: ts.URL})

	result, err := f.Fetch(context.Background(), domain.WeatherQuery{City: "Nairobi"})
	require.NoError(t, err)

	assert.Equal(t, "/data/2.5/weather", gotPath)
	assert.Equal(t, map[string]string{"q": "Nairobi", "appid": "test-key", "units": "metric"}, gotQuery)

	assert.Equal(t, "Nairobi", result.Name)
	assert.Equal(t, "Clear", result.Weather[0].Main)
	assert.Equal(t, 22.5, result.Main.Temp)
	assert.Nil(t, result.Wind.Gust)
	assert.True(t, result.Cod.OK())
}

func TestFetcher_Fetch_CityIsEscaped(t *testing.T) {
	var rawQuery string
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, nairobiPayload)
	})

	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL})
	_, err := f.Fetch(context.Background(), domain.WeatherQuery{City: "Dar es Salaam&appid=evil"})
	require.NoError(t, err)

	assert.Contains(t, rawQuery, "q=Dar+es+Salaam%26appid%3Devil")
	assert.Contains(t, rawQuery, "appid=k")
}

func TestFetcher_Fetch_ProviderErrorPassesThrough(t *testing.T) {
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"cod":"404","message":"city not found"}`)
	})

	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL})

	result, err := f.Fetch(context.Background(), domain.WeatherQuery{City: "Atlantis"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCode(404), result.Cod)
	assert.Equal(t, "city not found", result.Message)
	assert.Error(t, result.ProviderError())
}

func TestFetcher_Fetch_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		op     string
	}{
		{name: "html body", status: http.StatusOK, body: "<html>oops</html>", op: "decode"},
		{name: "empty body", status: http.StatusBadGateway, body: "", op: "decode"},
		{name: "truncated json", status: http.StatusOK, body: `{"weather": [`, op: "decode"},
		{name: "trailing garbage", status: http.StatusOK, body: nairobiPayload + "<html>garbage", op: "decode"},
		{name: "two json values", status: http.StatusOK, body: nairobiPayload + nairobiPayload, op: "decode"},
		{name: "oversized body", status: http.StatusOK, body: nairobiPayload + strings.Repeat(" ", maxResponseBytes), op: "read"},
		{name: "empty object", status: http.StatusOK, body: `{}`, op: "validate"},
		{name: "json null", status: http.StatusOK, body: `null`, op: "validate"},
		{name: "success without main and name", status: http.StatusOK, body: `{"coord":{"lon":1,"lat":1},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],"cod":200}`, op: "validate"},
		{name: "success without conditions", status: http.StatusOK, body: `{"coord":{"lon":1,"lat":1},"main":{"temp":20},"name":"Nairobi","weather":[],"cod":200}`, op: "validate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL})
			result, err := f.Fetch(context.Background(), domain.WeatherQuery{City: "Nairobi"})

			assert.Nil(t, result)
			var upstream *domain.UpstreamError
			require.True(t, errors.As(err, &upstream), "got %v", err)
			assert.Equal(t, tt.op, upstream.Op)
			assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
		})
	}
}

func TestFetcher_Fetch_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	f := NewFetcher(FetcherConfig{APIKey: "super-secret", BaseURL: "http://" + addr})
	_, err = f.Fetch(context.Background(), domain.WeatherQuery{City: "Nairobi"})

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "request", upstream.Op)
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	const bound = 100 * time.Millisecond
	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL, Timeout: bound})

	start := time.Now()
	_, err := f.Fetch(context.Background(), domain.WeatherQuery{City: "Nairobi"})
	elapsed := time.Since(start)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))

	var netErr net.Error
	require.True(t, errors.As(err, &netErr))
	assert.True(t, netErr.Timeout())
	assert.Less(t, elapsed, bound+2*time.Second)
}

func TestFetcher_Fetch_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Fetch(ctx, domain.WeatherQuery{City: "Nairobi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.KindUpstreamError, domain.KindOf(err))
}

func TestFetcher_Fetch_NoSharedState(t *testing.T) {
	var hits atomic.Int32
	ts := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		fmt.Fprintf(w, `{"coord":{"lon":36.8,"lat":-1.3},"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}],"main":{"temp":%d},"name":"Nairobi","cod":200}`, 20+n)
	})

	f := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: ts.URL})
	q := domain.WeatherQuery{City: "Nairobi"}

	first, err := f.Fetch(context.Background(), q)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 21.0, first.Main.Temp)
	assert.Equal(t, 22.0, second.Main.Temp)
	assert.NotSame(t, first, second)
}
