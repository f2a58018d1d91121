package domain

import (
	"context"
	"time"
)

// LookupRecord is one entry of the lookup audit log. It records the request
// and its outcome, never the weather payload.
type LookupRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	City       string    `json:"city"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code"`
	LatencyMS  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Outcome is the discriminated result of a lookup: exactly one of Result
// (Kind == KindOK) or Err is set.
type Outcome struct {
	Kind   Kind
	Query  WeatherQuery
	Result *WeatherResult
	Err    error
}

// Status is the HTTP status matching the outcome
func (o Outcome) Status() int {
	return StatusOf(o.Err)
}

// LookupRepository defines the interface for the lookup audit log
type LookupRepository interface {
	// SaveLookup persists a lookup record
	SaveLookup(ctx context.Context, rec LookupRecord) error

	// GetRecentLookups retrieves lookups created in [from, to]
	GetRecentLookups(ctx context.Context, from, to time.Time) ([]LookupRecord, error)

	// Health checks store connectivity
	Health(ctx context.Context) error
}
