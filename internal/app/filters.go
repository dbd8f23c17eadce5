package app

import (
	"sort"
	"strconv"
	"strings"

	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
)

// CacheKeyPrefix starts every property cache key.
const CacheKeyPrefix = "properties_"

var sourceAliases = map[string]string{
	domain.SelectorAll:         domain.SelectorAll,
	domain.SelectorMagicBricks: domain.SelectorMagicBricks,
	domain.SelectorHousing:     domain.SelectorHousing,
	"source-a":                 domain.SelectorMagicBricks,
	"source-b":                 domain.SelectorHousing,
	"housingcom":               domain.SelectorHousing,
	"housing.com":              domain.SelectorHousing,
}

// NormalizeFilters applies every default independently, so two requests
// that mean the same search end up with identical filters.
func NormalizeFilters(cat *catalog.Catalog, raw domain.RawFilters) domain.SearchFilters {
	if cat == nil {
		cat = catalog.Default()
	}
	f := domain.SearchFilters{
		City:         cat.DefaultCity,
		Bedrooms:     normalizeBedrooms(raw.Bedrooms),
		PropertyType: normalizePropertyTypes(cat, raw.PropertyType),
		Source:       domain.SelectorAll,
	}
	if city, ok := cat.City(raw.City); ok {
		f.City = city.Name
	}
	if f.Bedrooms == "" {
		f.Bedrooms = cat.DefaultBedrooms
	}
	if sel, ok := sourceAliases[strings.ToLower(strings.TrimSpace(raw.Source))]; ok {
		f.Source = sel
	}
	return f
}

func normalizeBedrooms(s string) string {
	seen := map[int]struct{}{}
	var out []int
	for _, tok := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	parts := make([]string, len(out))
	for i, n := range out {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// normalizePropertyTypes keeps known tags in catalog order.
func normalizePropertyTypes(cat *catalog.Catalog, s string) string {
	want := map[string]struct{}{}
	for _, tok := range strings.Split(s, ",") {
		if tag, ok := cat.PropertyType(tok); ok {
			want[tag] = struct{}{}
		}
	}
	if len(want) == 0 {
		return cat.DefaultPropertyTypes()
	}
	out := make([]string, 0, len(want))
	for _, tag := range cat.PropertyTypes {
		if _, ok := want[tag]; ok {
			out = append(out, tag)
		}
	}
	return strings.Join(out, ",")
}

// CacheKey is pure in the normalized filters; the source selector is part of
// the key so "all" never collides with a single-source result.
func CacheKey(f domain.SearchFilters) string {
	return CacheKeyPrefix + strings.Join([]string{f.Source, f.City, f.Bedrooms, f.PropertyType}, "_")
}

// cityFromKey extracts the city segment of a property cache key.
func cityFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, CacheKeyPrefix) {
		return "", false
	}
	parts := strings.Split(strings.TrimPrefix(key, CacheKeyPrefix), "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
