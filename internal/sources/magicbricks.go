package sources

import (
	"strings"

	"estate_assistant/internal/catalog"
	"estate_assistant/internal/domain"
)

type MagicBricks struct{ *site }

// NewMagicBricks builds the adapter for source A. A nil catalog means the
// embedded one.
func NewMagicBricks(cat *catalog.Catalog, runner domain.ActorRunner, opts ...Option) *MagicBricks {
	s := newSite(domain.SelectorMagicBricks, cat, runner, opts)
	s.mapItem = mapMagicBricks
	s.buildURL = func(seed string, f domain.SearchFilters) string {
		return strings.NewReplacer(
			"{bedrooms}", f.Bedrooms,
			"{types}", f.PropertyType,
			"{city}", seed,
		).Replace(s.cfg.URLTemplate)
	}
	return &MagicBricks{s}
}
