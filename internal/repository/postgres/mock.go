package postgres

import (
	"context"
	"time"

	"github.com/cityweather/backend/internal/domain"
)

// MockRepository implements domain.LookupRepository when no database is
// configured
type MockRepository struct{}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveLookup is a no-op in mock mode
func (r *MockRepository) SaveLookup(ctx context.Context, rec domain.LookupRecord) error {
	return nil
}

// GetRecentLookups returns nothing in mock mode
func (r *MockRepository) GetRecentLookups(ctx context.Context, from, to time.Time) ([]domain.LookupRecord, error) {
	return []domain.LookupRecord{}, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
