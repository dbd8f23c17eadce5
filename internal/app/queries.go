package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
	"estate_assistant/internal/sources"
)

// Dispatcher is what the property service needs from the aggregator.
type Dispatcher interface {
	Dispatch(ctx context.Context, f domain.SearchFilters) domain.AggregateResult
}

// PropertyService is the front door for property searches: normalize,
// consult the cache, dispatch on miss, store successes.
type PropertyService struct {
	cat      *catalog.Catalog
	sources  Dispatcher
	cache    domain.Cache
	cacheTTL time.Duration
	clock    domain.Clock
}

func NewPropertyService(cat *catalog.Catalog, d Dispatcher, c domain.Cache, ttl time.Duration, clock domain.Clock) *PropertyService {
	if cat == nil {
		cat = catalog.Default()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &PropertyService{cat: cat, sources: d, cache: c, cacheTTL: ttl, clock: clock}
}

// Lookup is one answered search. Hit reports whether it came from the cache.
type Lookup struct {
	Envelope domain.Envelope
	Filters  domain.SearchFilters
	Hit      bool
}

// GetProperties returns the cached envelope unchanged on a hit. On total
// failure the returned Lookup still carries the error envelope.
func (s *PropertyService) GetProperties(ctx context.Context, raw domain.RawFilters) (Lookup, error) {
	f := NormalizeFilters(s.cat, raw)
	key := CacheKey(f)

	if env, ok := s.cached(ctx, key); ok {
		return Lookup{Envelope: env, Filters: f, Hit: true}, nil
	}
	return s.fetchAndStore(ctx, f, key)
}

// Refresh skips the cache read but still stores a successful result.
func (s *PropertyService) Refresh(ctx context.Context, raw domain.RawFilters) (Lookup, error) {
	f := NormalizeFilters(s.cat, raw)
	return s.fetchAndStore(ctx, f, CacheKey(f))
}

func (s *PropertyService) cached(ctx context.Context, key string) (domain.Envelope, bool) {
	var entry domain.CacheEntry
	ok, err := s.cache.Get(ctx, key, &entry)
	if err != nil {
		log.Warn().Err(err).Str("component", "properties").Str("key", key).Msg("cache read failed")
		_ = s.cache.Del(ctx, key)
		return domain.Envelope{}, false
	}
	if !ok {
		return domain.Envelope{}, false
	}
	// The store may keep entries past their window; the entry's own stamp decides.
	if !entry.Valid(s.clock.Now()) {
		_ = s.cache.Del(ctx, key)
		return domain.Envelope{}, false
	}
	return entry.Envelope, true
}

func (s *PropertyService) fetchAndStore(ctx context.Context, f domain.SearchFilters, key string) (Lookup, error) {
	res := s.sources.Dispatch(ctx, f)
	if !res.Success {
		env := domain.Envelope{
			Success:    false,
			Properties: []domain.Property{},
			City:       f.City,
			Source:     f.Source,
			Sources:    res.Sources,
			Error:      "Failed to fetch properties",
			Details:    res.Error,
			Message:    "Please try again later or choose a different city.",
		}
		err := res.Err
		if err == nil {
			err = domain.ErrAllSourcesFailed
		}
		return Lookup{Envelope: env, Filters: f}, err
	}

	now := s.clock.Now()
	props := sources.Renormalize(res.Properties, f, now)
	env := domain.Envelope{
		Success:    true,
		Properties: props,
		City:       f.City,
		Source:     f.Source,
		Count:      len(props),
		Sources:    res.Sources,
		Message:    res.Message,
	}

	entry := domain.CacheEntry{Envelope: env, Timestamp: now, ExpiresIn: s.cacheTTL}
	if err := s.cache.Set(ctx, key, entry, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("component", "properties").Str("key", key).Msg("cache write failed")
	}
	return Lookup{Envelope: env, Filters: f}, nil
}
