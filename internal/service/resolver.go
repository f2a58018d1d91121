package service

import (
	"github.com/cityweather/backend/internal/domain"
)

// CityParam is the query parameter naming the requested city
const CityParam = "q"

// QueryArgs is the read side of a request's query string.
// *fasthttp.Args (fiber's c.Context().QueryArgs()) satisfies it.
type QueryArgs interface {
	Has(key string) bool
	Peek(key string) []byte
}

// ResolveQuery extracts the requested city. A missing parameter falls back
// to defaultCity; an empty one is rejected. The value is otherwise passed
// through untouched: the provider decides what a valid city is.
func ResolveQuery(args QueryArgs, defaultCity string) (domain.WeatherQuery, error) {
	city := defaultCity
	if args.Has(CityParam) {
		city = string(args.Peek(CityParam))
	}

	if city == "" {
		return domain.WeatherQuery{}, domain.NewInvalidRequest(domain.ReasonCityRequired)
	}

	return domain.WeatherQuery{City: city}, nil
}
