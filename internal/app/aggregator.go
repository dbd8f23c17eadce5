package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"estate_assistant/internal/domain"
)

// Aggregator fans a search out to the source adapters and merges the results.
// Adapters are kept in declared order; that order decides dedupe ties.
type Aggregator struct {
	adapters []domain.SourceAdapter
}

func NewAggregator(adapters ...domain.SourceAdapter) *Aggregator {
	return &Aggregator{adapters: adapters}
}

// Dispatch routes by f.Source: one adapter directly, or all of them merged.
func (a *Aggregator) Dispatch(ctx context.Context, f domain.SearchFilters) domain.AggregateResult {
	if f.Source != domain.SelectorAll {
		for _, ad := range a.adapters {
			if ad.Selector() == f.Source {
				return single(ad.Fetch(ctx, f), ad.Selector())
			}
		}
	}
	return a.FetchAll(ctx, f)
}

func (a *Aggregator) FetchAll(ctx context.Context, f domain.SearchFilters) domain.AggregateResult {
	results := make([]domain.SourceResult, len(a.adapters))

	var g errgroup.Group
	for i, ad := range a.adapters {
		i, ad := i, ad
		g.Go(func() error {
			results[i] = ad.Fetch(ctx, f)
			return nil
		})
	}
	_ = g.Wait() // adapters report failures as values

	out := domain.AggregateResult{
		Properties: []domain.Property{},
		Sources:    make(map[string]domain.SourceStatus, len(results)),
	}
	seen := map[string]struct{}{}
	var errs []string
	var causes []error
	for i, r := range results {
		out.Sources[a.adapters[i].Selector()] = statusOf(r)
		if !r.Success {
			errs = append(errs, r.Error)
			causes = append(causes, r.Err)
			continue
		}
		for _, p := range r.Properties {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out.Properties = append(out.Properties, p)
		}
	}

	switch {
	case len(results) > 0 && len(errs) == len(results):
		scope := "all sources"
		if len(results) == 2 {
			scope = "both sources"
		}
		out.Error = fmt.Sprintf("Failed to fetch properties from %s: %s", scope, strings.Join(errs, ", "))
		out.Err = fmt.Errorf("%w: %w", domain.ErrAllSourcesFailed, errors.Join(causes...))
		log.Warn().Str("component", "aggregator").Str("city", f.City).Msg("all sources failed")
		return out
	case len(errs) > 0:
		log.Warn().Str("component", "aggregator").Str("city", f.City).
			Strs("errors", errs).Int("count", len(out.Properties)).Msg("partial source failure")
	}

	out.Success = true
	if len(out.Properties) == 0 {
		out.Message = fmt.Sprintf("No properties found in %s for the selected filters. Try another city or adjust your filters.", f.City)
	}
	return out
}

func single(r domain.SourceResult, selector string) domain.AggregateResult {
	out := domain.AggregateResult{
		Success:    r.Success,
		Properties: r.Properties,
		Sources:    map[string]domain.SourceStatus{selector: statusOf(r)},
		Error:      r.Error,
		Message:    r.Message,
		Err:        r.Err,
	}
	if out.Properties == nil {
		out.Properties = []domain.Property{}
	}
	return out
}

func statusOf(r domain.SourceResult) domain.SourceStatus {
	return domain.SourceStatus{
		Success: r.Success,
		Count:   len(r.Properties),
		Error:   r.Error,
		Message: r.Message,
	}
}
