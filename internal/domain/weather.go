package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// DefaultCity is used when the request carries no city at all
const DefaultCity = "nairobi"

// IconBaseURL hosts the provider's condition icons
const IconBaseURL = "https://openweathermap.org/img/wn/"

// WeatherQuery is the validated input of a single lookup
type WeatherQuery struct {
	City string `json:"city"`
}

// Coord is a geographic position
type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Condition describes one weather condition reported by the provider
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// MainMetrics holds temperature (Celsius) and atmospheric readings
type MainMetrics struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
	SeaLevel  *int    `json:"sea_level,omitempty"`
	GrndLevel *int    `json:"grnd_level,omitempty"`
}

// Wind is the wind vector. Gust is nil when the provider omits it.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   int      `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Clouds is the cloud coverage in percent
type Clouds struct {
	All int `json:"all"`
}

// Sys carries country and sun times
type Sys struct {
	Type    int    `json:"type"`
	ID      int    `json:"id"`
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// WeatherResult is the provider's current-weather payload.
// It is built once per request and never mutated afterwards.
type WeatherResult struct {
	Coord      Coord       `json:"coord"`
	Weather    []Condition `json:"weather"`
	Base       string      `json:"base,omitempty"`
	Main       MainMetrics `json:"main"`
	Visibility *int        `json:"visibility,omitempty"`
	Wind       Wind        `json:"wind"`
	Clouds     Clouds      `json:"clouds"`
	Dt         int64       `json:"dt"`
	Sys        Sys         `json:"sys"`
	Timezone   int         `json:"timezone"`
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Cod        StatusCode  `json:"cod"`
	Message    string      `json:"message,omitempty"`

	hasCoord bool
	hasMain  bool
}

// UnmarshalJSON decodes the payload and remembers which required objects
// were actually present, so Validate can tell a missing "main" from a
// reading of zero.
func (w *WeatherResult) UnmarshalJSON(data []byte) error {
	type payload WeatherResult
	var aux struct {
		payload
		Coord *Coord       `json:"coord"`
		Main  *MainMetrics `json:"main"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*w = WeatherResult(aux.payload)
	if aux.Coord != nil {
		w.Coord = *aux.Coord
		w.hasCoord = true
	}
	if aux.Main != nil {
		w.Main = *aux.Main
		w.hasMain = true
	}
	return nil
}

// Current returns the primary condition. Only valid on success payloads
// (Cod.OK()) that passed Validate.
func (w *WeatherResult) Current() Condition {
	return w.Weather[0]
}

// IconURL returns the 2x icon for the primary condition
func (w *WeatherResult) IconURL() string {
	return IconBaseURL + w.Current().Icon + "@2x.png"
}

// RoundedTemp returns the current temperature rounded to whole degrees
func (w *WeatherResult) RoundedTemp() int {
	return int(math.Round(w.Main.Temp))
}

// ProviderError reports an application-level error carried in the payload,
// e.g. {"cod":"404","message":"city not found"}. Nil on success payloads.
func (w *WeatherResult) ProviderError() error {
	if w.Cod.OK() {
		return nil
	}
	return &ProviderError{Code: int(w.Cod), Message: w.Message}
}

// Validate rejects decoded bodies that are neither a provider error payload
// nor a complete success payload. It is meaningful only on results produced
// by UnmarshalJSON.
func (w *WeatherResult) Validate() error {
	switch {
	case w.Cod == 0:
		return errors.New("payload has no cod")
	case !w.Cod.OK():
		return nil
	case !w.hasCoord:
		return errors.New(`success payload is missing "coord"`)
	case !w.hasMain:
		return errors.New(`success payload is missing "main"`)
	case w.Name == "":
		return errors.New(`success payload is missing "name"`)
	case len(w.Weather) == 0:
		return errors.New("success payload has no weather conditions")
	}
	return nil
}

// StatusCode is the provider's "cod" field. The provider sends it as a
// number on success and as a string on most error payloads.
type StatusCode int

// OK reports whether the provider signalled success
func (c StatusCode) OK() bool {
	return c == 200
}

// UnmarshalJSON accepts 200, "200" and null
func (c *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("cod %q is not numeric", s)
		}
		*c = StatusCode(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cod: %w", err)
	}
	*c = StatusCode(n)
	return nil
}

// WeatherResponse wraps weather data for the JSON API
type WeatherResponse struct {
	Data    *WeatherResult `json:"data"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
}
