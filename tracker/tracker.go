// Package tracker answers flight status lookups from the lookup cache,
// scraping the tracker site only on a miss.
package tracker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/flighttrack/metrics"
	"github.com/use-agent/flighttrack/models"
	"golang.org/x/sync/singleflight"
)

// Lookup is the persisted lookup cache.
type Lookup interface {
	Find(ctx context.Context, key models.LookupKey) (*models.FlightRecord, error)
	Store(ctx context.Context, rec *models.FlightRecord) (*models.FlightRecord, error)
}

// Extractor scrapes a flight record from the tracker site.
type Extractor interface {
	Extract(ctx context.Context, key models.LookupKey) (*models.FlightRecord, error)
}

// Service runs the cache-or-scrape sequence.
// It is safe for concurrent use.
type Service struct {
	cache     Lookup
	extractor Extractor
	metrics   *metrics.Metrics
	inflight  singleflight.Group
}

// New creates a Service.
func New(cache Lookup, extractor Extractor, m *metrics.Metrics) *Service {
	return &Service{cache: cache, extractor: extractor, metrics: m}
}

// lookupResult is what one shared flight hands to every waiting caller.
type lookupResult struct {
	rec *models.FlightRecord
	hit bool
}

// Track returns the record for key and whether it came from the cache.
//
// On a miss, concurrent calls for the same key share one scrape: the first
// caller extracts and stores, the others wait for its result. The shared
// scrape is detached from any one caller's cancellation and is bounded by
// the extractor's own timeout; a caller whose ctx ends stops waiting
// without affecting the others. Storage failures are returned as
// ErrCodeStorageFailed; extraction failures are returned as produced by
// the Extractor.
func (s *Service) Track(ctx context.Context, key models.LookupKey) (*models.FlightRecord, bool, error) {
	rec, err := s.find(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec != nil {
		s.metrics.Lookup(true)
		slog.Debug("lookup cache hit", "key", key.String())
		return rec, true, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key.String(), func() (any, error) {
		// Another request may have stored the key since our first check.
		if rec, err := s.find(flightCtx, key); err != nil || rec != nil {
			return lookupResult{rec: rec, hit: rec != nil}, err
		}

		scraped, err := s.extractor.Extract(flightCtx, key)
		if err != nil {
			return nil, err
		}

		stored, err := s.cache.Store(flightCtx, scraped)
		if err != nil {
			s.metrics.StorageError("store")
			return nil, models.NewTrackError(models.ErrCodeStorageFailed, "Storage failed", err)
		}
		return lookupResult{rec: stored}, nil
	})

	select {
	case <-ctx.Done():
		slog.Debug("caller left in-flight lookup", "key", key.String(), "error", ctx.Err())
		return nil, false, abandoned(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		if res.Shared {
			slog.Debug("joined in-flight lookup", "key", key.String())
		}
		lr := res.Val.(lookupResult)
		s.metrics.Lookup(lr.hit)
		return lr.rec, lr.hit, nil
	}
}

// abandoned reports a caller that stopped waiting on a lookup.
func abandoned(err error) *models.TrackError {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewTrackError(models.ErrCodeTimeout, "lookup exceeded request deadline", err)
	}
	return models.NewTrackError(models.ErrCodeScrapeFailed, "request canceled", err)
}

func (s *Service) find(ctx context.Context, key models.LookupKey) (*models.FlightRecord, error) {
	rec, err := s.cache.Find(ctx, key)
	if err != nil {
		s.metrics.StorageError("find")
		var te *models.TrackError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, models.NewTrackError(models.ErrCodeStorageFailed, "Storage failed", err)
	}
	return rec, nil
}
