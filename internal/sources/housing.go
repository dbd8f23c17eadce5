package sources

import (
	"net/url"
	"strings"

	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
)

type Housing struct{ *site }

// NewHousing builds the adapter for source B. The seed is a city search URL
// that gets one bedrooms param per bedroom value and a single comma-joined
// propertyType param appended.
func NewHousing(cat *catalog.Catalog, runner domain.ActorRunner, opts ...Option) *Housing {
	s := newSite(domain.SelectorHousing, cat, runner, opts)
	s.mapItem = mapHousing
	s.buildURL = housingURL
	return &Housing{s}
}

func housingURL(seed string, f domain.SearchFilters) string {
	q := url.Values{}
	for _, b := range splitList(f.Bedrooms) {
		q.Add("bedrooms", b)
	}
	if types := splitList(f.PropertyType); len(types) > 0 {
		q.Set("propertyType", strings.Join(types, ","))
	}
	if len(q) == 0 {
		return seed
	}
	sep := "?"
	if strings.Contains(seed, "?") {
		sep = "&"
	}
	return seed + sep + q.Encode()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
