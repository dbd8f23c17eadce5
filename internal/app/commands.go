package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"estate_assistant/internal/domain"
)

// ClearCache removes cached property searches, all of them or only those
// for one city. It returns how many entries were removed.
func (s *PropertyService) ClearCache(ctx context.Context, city string) (int, error) {
	keys, err := s.cache.Keys(ctx, CacheKeyPrefix)
	if err != nil {
		return 0, err
	}
	city = strings.TrimSpace(city)
	if c, ok := s.cat.City(city); ok {
		city = c.Name
	}

	removed := 0
	for _, k := range keys {
		if city != "" {
			if kc, ok := cityFromKey(k); !ok || !strings.EqualFold(kc, city) {
				continue
			}
		}
		if err := s.cache.Del(ctx, k); err != nil {
			return removed, err
		}
		removed++
	}
	log.Info().Str("component", "properties").Str("city", city).Int("removed", removed).Msg("property cache cleared")
	return removed, nil
}

func (s *PropertyService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	keys, err := s.cache.Keys(ctx, CacheKeyPrefix)
	if err != nil {
		return domain.CacheStats{}, err
	}
	seen := map[string]struct{}{}
	cities := []string{}
	for _, k := range keys {
		c, ok := cityFromKey(k)
		if !ok {
			continue
		}
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			cities = append(cities, c)
		}
	}
	sort.Strings(cities)
	return domain.CacheStats{Entries: len(keys), Cities: cities}, nil
}

// WarmReport summarizes one warm-up pass.
type WarmReport struct {
	Warmed int
	Failed int
}

// Warmer refreshes the default search of every catalog city.
type Warmer struct {
	props   *PropertyService
	workers int64
}

func NewWarmer(p *PropertyService, workers int) *Warmer {
	if workers < 1 {
		workers = 1
	}
	return &Warmer{props: p, workers: int64(workers)}
}

func (w *Warmer) WarmAll(ctx context.Context) (WarmReport, error) {
	sem := semaphore.NewWeighted(w.workers)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		rep WarmReport
	)

	for _, city := range w.props.cat.CityNames() {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, err
		}

		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			defer sem.Release(1)

			_, err := w.props.Refresh(ctx, domain.RawFilters{City: city})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.Failed++
				log.Warn().Str("city", city).Err(err).Msg("warm failed")
				return
			}
			rep.Warmed++
			log.Info().Str("city", city).Msg("warm ok")
		}(city)
	}

	wg.Wait()
	return rep, nil
}
