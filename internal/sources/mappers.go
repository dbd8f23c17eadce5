package sources

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"estate_assistant/internal/domain"
)

/********** alias registries (single source of truth) **********/

var magicBricksAliases = map[string][]string{
	"id":          {"id", "propertyId", "property_id"},
	"title":       {"name", "title", "propertyTitle"},
	"location":    {"locality", "address", "location", "localityName"},
	"bedrooms":    {"bedrooms", "bedroom", "bhk"},
	"area":        {"area"},
	"area_value":  {"covered_area", "carpet_area"},
	"area_unit":   {"cov_area_unit", "carp_area_unit"},
	"price_text":  {"price_display_value", "priceDisplayValue"},
	"price_num":   {"price", "price_value"},
	"description": {"description", "desc", "seo_description"},
	"image":       {"imageUrl", "image_url", "image"},
	"url":         {"propertyUrl", "url", "property_url"},
}

var housingAliases = map[string][]string{
	"id":          {"id", "listingId", "listing_id"},
	"title":       {"title", "name", "propertyTitle"},
	"location":    {"location", "locality", "address", "address.locality"},
	"bedrooms":    {"bedrooms", "bhk", "bedroom"},
	"area":        {"area", "builtUpArea", "carpetArea"},
	"price_text":  {"price", "displayPrice", "price_display"},
	"description": {"description", "desc"},
	"image":       {"imageUrl", "image_url", "image", "coverImage"},
	"url":         {"url", "propertyUrl", "link"},
}

// Non-empty fallbacks for every declared Property field.
const (
	fallbackPrice       = "Price on request"
	fallbackArea        = "Area not specified"
	fallbackDescription = "No description available"
	fallbackBedrooms    = "Not specified"
	fallbackLocation    = "Location not specified"
	fallbackImage       = "https://via.placeholder.com/300x200?text=Property"
	defaultAreaUnit     = "sq.ft."
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupText renders strings and numbers at path as trimmed text.
func lookupText(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// firstNonEmptyAlias: first non-empty text for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := lookupText(m, p); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "1,20,000").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

func orDefault(s, def string) string {
	if t := strings.TrimSpace(s); t != "" {
		return t
	}
	return def
}

var pricePrinter = message.NewPrinter(language.English)

// formatRupees renders a numeric price with thousands grouping.
func formatRupees(f float64) string {
	return pricePrinter.Sprintf("₹%d", int64(math.Round(f)))
}

// newID synthesizes an id for items that arrive without one.
func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), uuid.NewString()[:8])
}

/********** canonical form **********/

// defaults carries the per-source values used when an item lacks a field.
type defaults struct {
	idPrefix string
	title    string
	location string
	bedrooms string
	url      string
	source   string
}

func defaultsFor(source string, f domain.SearchFilters, seedURL string) defaults {
	d := defaults{
		idPrefix: "property",
		title:    "Property",
		location: orDefault(f.City, fallbackLocation),
		bedrooms: orDefault(f.Bedrooms, fallbackBedrooms),
		url:      seedURL,
		source:   orDefault(source, "Unknown"),
	}
	switch source {
	case domain.SourceMagicBricks:
		d.idPrefix, d.title = "magicbricks", "MagicBricks Property"
		if f.City != "" {
			d.location = f.City + " Location"
		}
	case domain.SourceHousing:
		d.idPrefix, d.title = "housing", "Housing.com Property"
	}
	if d.url == "" {
		d.url = "Not specified"
	}
	return d
}

// canonicalize fills every empty field. Applying it to an already canonical
// Property returns it unchanged.
func canonicalize(p domain.Property, d defaults, now time.Time) domain.Property {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = newID(d.idPrefix, now)
	}
	p.Title = orDefault(p.Title, d.title)
	p.Location = orDefault(p.Location, d.location)
	p.Price = orDefault(p.Price, fallbackPrice)
	p.Bedrooms = orDefault(p.Bedrooms, d.bedrooms)
	p.Area = orDefault(p.Area, fallbackArea)
	p.Description = orDefault(p.Description, fallbackDescription)
	p.ImageURL = orDefault(p.ImageURL, fallbackImage)
	p.URL = orDefault(p.URL, d.url)
	p.Source = orDefault(p.Source, d.source)
	return p
}

// Renormalize brings items that arrived through another path (fallback
// route, cache) into canonical form. It is idempotent.
func Renormalize(in []domain.Property, f domain.SearchFilters, now time.Time) []domain.Property {
	out := make([]domain.Property, 0, len(in))
	for _, p := range in {
		out = append(out, canonicalize(p, defaultsFor(p.Source, f, ""), now))
	}
	return out
}

/********** source mappers **********/

func mapMagicBricks(item map[string]any, f domain.SearchFilters, seedURL string, now time.Time) domain.Property {
	p := domain.Property{
		ID:          firstNonEmptyAlias(item, magicBricksAliases, "id"),
		Title:       firstNonEmptyAlias(item, magicBricksAliases, "title"),
		Location:    firstNonEmptyAlias(item, magicBricksAliases, "location"),
		Bedrooms:    firstNonEmptyAlias(item, magicBricksAliases, "bedrooms"),
		Description: firstNonEmptyAlias(item, magicBricksAliases, "description"),
		ImageURL:    firstNonEmptyAlias(item, magicBricksAliases, "image"),
		URL:         firstNonEmptyAlias(item, magicBricksAliases, "url"),
		Source:      domain.SourceMagicBricks,
	}

	// Area → explicit text; else compose value + unit.
	if s := firstNonEmptyAlias(item, magicBricksAliases, "area"); s != "" {
		p.Area = s
	} else if v := firstNonEmptyAlias(item, magicBricksAliases, "area_value"); v != "" {
		p.Area = joinNonEmpty(v, orDefault(firstNonEmptyAlias(item, magicBricksAliases, "area_unit"), defaultAreaUnit))
	}

	// Price → display text; else format the numeric value.
	if s := firstNonEmptyAlias(item, magicBricksAliases, "price_text"); s != "" {
		p.Price = s
	} else if n := getFloatFlexible(item, magicBricksAliases["price_num"]...); n != nil && *n > 0 {
		p.Price = formatRupees(*n)
	}

	return canonicalize(p, defaultsFor(domain.SourceMagicBricks, f, seedURL), now)
}

func mapHousing(item map[string]any, f domain.SearchFilters, seedURL string, now time.Time) domain.Property {
	p := domain.Property{
		ID:          firstNonEmptyAlias(item, housingAliases, "id"),
		Title:       firstNonEmptyAlias(item, housingAliases, "title"),
		Location:    firstNonEmptyAlias(item, housingAliases, "location"),
		Price:       firstNonEmptyAlias(item, housingAliases, "price_text"),
		Bedrooms:    firstNonEmptyAlias(item, housingAliases, "bedrooms"),
		Area:        firstNonEmptyAlias(item, housingAliases, "area"),
		Description: firstNonEmptyAlias(item, housingAliases, "description"),
		ImageURL:    firstNonEmptyAlias(item, housingAliases, "image"),
		URL:         firstNonEmptyAlias(item, housingAliases, "url"),
		Source:      domain.SourceHousing,
	}
	return canonicalize(p, defaultsFor(domain.SourceHousing, f, seedURL), now)
}
