// Package sources holds the listing-site adapters. Each one turns search
// filters into an actor job, runs it and maps the dataset into Property values.
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
)

type mapFunc func(item map[string]any, f domain.SearchFilters, seedURL string, now time.Time) domain.Property

// site is the fetch pipeline shared by both adapters; they differ only in
// how the target URL is built and how items are mapped.
type site struct {
	selector string
	cfg      catalog.SourceConfig
	cat      *catalog.Catalog
	runner   domain.ActorRunner
	fallback domain.FallbackRoute
	clock    domain.Clock

	buildURL func(seed string, f domain.SearchFilters) string
	mapItem  mapFunc
}

type Option func(*site)

// WithFallback sets the alternate backend tried once when the actor fails.
func WithFallback(r domain.FallbackRoute) Option {
	return func(s *site) { s.fallback = r }
}

func WithClock(c domain.Clock) Option {
	return func(s *site) {
		if c != nil {
			s.clock = c
		}
	}
}

func newSite(selector string, cat *catalog.Catalog, runner domain.ActorRunner, opts []Option) *site {
	if cat == nil {
		cat = catalog.Default()
	}
	cfg, _ := cat.Source(selector)
	s := &site{
		selector: selector,
		cfg:      cfg,
		cat:      cat,
		runner:   runner,
		clock:    domain.SystemClock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *site) Name() string     { return s.cfg.Name }
func (s *site) Selector() string { return s.selector }

func (s *site) input(target string) domain.ActorInput {
	return domain.ActorInput{
		URLs:             []string{target},
		MaxItemsPerURL:   s.cfg.MaxItemsPerURL,
		MaxRetriesPerURL: s.cfg.MaxRetriesPerURL,
		TimeoutSecs:      s.cfg.TimeoutSecs,
		Proxy: domain.ProxyConfig{
			UseApifyProxy:     true,
			ApifyProxyGroups:  s.cfg.ProxyGroups,
			ApifyProxyCountry: s.cfg.ProxyCountry,
		},
	}
}

func (s *site) Fetch(ctx context.Context, f domain.SearchFilters) domain.SourceResult {
	logger := log.With().Str("component", "source").Str("source", s.selector).Str("city", f.City).Logger()

	seed, ok := s.cat.Seed(f.City, s.selector)
	if !ok {
		msg := fmt.Sprintf("City %s is not supported for %s", f.City, s.Name())
		logger.Warn().Msg("unsupported city")
		return s.failed(fmt.Errorf("%w: %s", domain.ErrUnsupportedCity, msg), msg)
	}

	target := s.buildURL(seed, f)
	run, err := s.runner.Run(ctx, s.cfg.ActorID, s.input(target))
	if err != nil {
		logger.Warn().Err(err).Str("url", target).Msg("actor run failed")
		if props, ok := s.tryFallback(ctx, f, target); ok {
			return s.succeeded(props, "", true)
		}
		msg := fmt.Sprintf("%s scraping failed for %s: %v", s.Name(), f.City, err)
		if !errors.Is(err, domain.ErrBackendInvocationFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrBackendInvocationFailed, err)
		}
		return s.failed(err, msg)
	}

	now := s.clock.Now()
	props := make([]domain.Property, 0, len(run.Items))
	for _, item := range run.Items {
		props = append(props, s.mapItem(item, f, target, now))
	}
	res := s.succeeded(props, "", false)
	res.RunID = run.RunID
	if len(props) == 0 {
		res.Message = fmt.Sprintf("No properties found on %s for %s", s.Name(), f.City)
	}
	logger.Info().Str("run_id", run.RunID).Int("count", len(props)).Msg("source fetched")
	return res
}

// tryFallback re-requests the same filters from the alternate backend once.
func (s *site) tryFallback(ctx context.Context, f domain.SearchFilters, target string) ([]domain.Property, bool) {
	if s.fallback == nil || domain.FallbackDisabled(ctx) || ctx.Err() != nil {
		return nil, false
	}
	props, err := s.fallback.FetchSource(domain.WithoutFallback(ctx), s.selector, f)
	if err != nil {
		log.Warn().Err(err).Str("component", "source").Str("source", s.selector).Msg("fallback route failed")
		return nil, false
	}
	now := s.clock.Now()
	d := defaultsFor(s.Name(), f, target)
	out := make([]domain.Property, 0, len(props))
	for _, p := range props {
		if p.Source == "" {
			p.Source = s.Name()
		}
		out = append(out, canonicalize(p, d, now))
	}
	return out, true
}

func (s *site) succeeded(props []domain.Property, msg string, viaFallback bool) domain.SourceResult {
	observability.ObserveSource(s.selector, true)
	if viaFallback {
		msg = "Data fetched from backend"
	}
	return domain.SourceResult{
		Source:     s.Name(),
		Success:    true,
		Properties: props,
		Message:    msg,
		Fallback:   viaFallback,
	}
}

func (s *site) failed(err error, msg string) domain.SourceResult {
	observability.ObserveSource(s.selector, false)
	return domain.SourceResult{
		Source:     s.Name(),
		Success:    false,
		Properties: []domain.Property{},
		Error:      msg,
		Err:        err,
	}
}
