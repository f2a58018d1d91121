package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/cityweather/backend/internal/domain"
	"github.com/cityweather/backend/pkg/utils"
)

const (
	defaultLookupHours = 24
	maxLookupHours     = 720 // 30 days
)

// WeatherFetcher performs the provider call for a resolved query
type WeatherFetcher interface {
	Fetch(ctx context.Context, q domain.WeatherQuery) (*domain.WeatherResult, error)
}

// WeatherService resolves page requests into weather outcomes and keeps the
// lookup audit log
type WeatherService struct {
	fetcher     WeatherFetcher
	repo        LookupRepository
	defaultCity string

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewWeatherService creates a new weather service
func NewWeatherService(fetcher WeatherFetcher, repo LookupRepository, defaultCity string) *WeatherService {
	return &WeatherService{
		fetcher:     fetcher,
		repo:        repo,
		defaultCity: defaultCity,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *WeatherService) WaitBackground() {
	s.wgBg.Wait()
}

// Lookup resolves the request's city, fetches its weather and classifies the
// result. Provider error payloads are reported as KindProviderError.
func (s *WeatherService) Lookup(ctx context.Context, args QueryArgs, requestID string) domain.Outcome {
	start := time.Now()
	out := s.lookup(ctx, args)

	if out.Err != nil {
		log.Warnf("weather lookup city=%q kind=%s: %v", out.Query.City, out.Kind, out.Err)
	} else {
		log.Debugf("weather lookup city=%q resolved to %q", out.Query.City, out.Result.Name)
	}

	s.record(domain.LookupRecord{
		RequestID:  requestID,
		City:       out.Query.City,
		Outcome:    out.Kind.String(),
		StatusCode: out.Status(),
		LatencyMS:  time.Since(start).Milliseconds(),
	})

	return out
}

func (s *WeatherService) lookup(ctx context.Context, args QueryArgs) domain.Outcome {
	q, err := ResolveQuery(args, s.defaultCity)
	if err != nil {
		return domain.Outcome{Kind: domain.KindOf(err), Err: err}
	}

	result, err := s.fetcher.Fetch(ctx, q)
	if err != nil {
		return domain.Outcome{Kind: domain.KindOf(err), Query: q, Err: err}
	}

	if err := result.ProviderError(); err != nil {
		return domain.Outcome{Kind: domain.KindProviderError, Query: q, Err: err}
	}

	return domain.Outcome{Kind: domain.KindOK, Query: q, Result: result}
}

// record persists rec asynchronously (tracked for graceful shutdown)
func (s *WeatherService) record(rec domain.LookupRecord) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveLookup(bgCtx, rec); err != nil {
			log.Errorf("Failed to save lookup record: %v", err)
		}
	}()
}

// RecentLookups returns the audit log for the last hours hours, clamped to
// 1..720. Zero selects the default window.
func (s *WeatherService) RecentLookups(ctx context.Context, hours int) ([]domain.LookupRecord, error) {
	if hours == 0 {
		hours = defaultLookupHours
	}
	hours = int(utils.Clamp(float64(hours), 1, maxLookupHours))

	to := time.Now().UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)

	return s.repo.GetRecentLookups(ctx, from, to)
}

// Health checks the lookup store
func (s *WeatherService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
