// Package catalog holds the fixed lookup tables: supported cities, their
// per-source seed identifiers, property type tags and per-source actor settings.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Catalog struct {
	DefaultCity     string                  `yaml:"default_city"`
	DefaultBedrooms string                  `yaml:"default_bedrooms"`
	PropertyTypes   []string                `yaml:"property_types"`
	Sources         map[string]SourceConfig `yaml:"sources"`
	Cities          []City                  `yaml:"cities"`

	byName map[string]int
	byType map[string]string
}

type City struct {
	Name  string            `yaml:"name"`
	Seeds map[string]string `yaml:"seeds"` // selector -> seed (URL or city slug)
}

type SourceConfig struct {
	Name             string   `yaml:"name"`
	ActorID          string   `yaml:"actor_id"`
	URLTemplate      string   `yaml:"url_template"`
	MaxItemsPerURL   int      `yaml:"max_items_per_url"`
	MaxRetriesPerURL int      `yaml:"max_retries_per_url"`
	TimeoutSecs      int      `yaml:"timeout_secs"`
	ProxyGroups      []string `yaml:"proxy_groups"`
	ProxyCountry     string   `yaml:"proxy_country"`
}

// Parse decodes and indexes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c.byName = make(map[string]int, len(c.Cities))
	for i, city := range c.Cities {
		c.byName[strings.ToLower(city.Name)] = i
	}
	c.byType = make(map[string]string, len(c.PropertyTypes))
	for _, t := range c.PropertyTypes {
		c.byType[strings.ToLower(t)] = t
	}
	if _, ok := c.byName[strings.ToLower(c.DefaultCity)]; !ok {
		return nil, fmt.Errorf("catalog: default city %q is not listed", c.DefaultCity)
	}
	return &c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. The document ships with the binary,
// so a parse failure is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

// City resolves a name case-insensitively to its catalog entry.
func (c *Catalog) City(name string) (City, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return City{}, false
	}
	return c.Cities[i], true
}

// Seed returns the source-specific seed for a city.
func (c *Catalog) Seed(city, selector string) (string, bool) {
	ct, ok := c.City(city)
	if !ok {
		return "", false
	}
	s, ok := ct.Seeds[selector]
	return s, ok && s != ""
}

// PropertyType canonicalises a tag; ok is false for unknown tags.
func (c *Catalog) PropertyType(tag string) (string, bool) {
	t, ok := c.byType[strings.ToLower(strings.TrimSpace(tag))]
	return t, ok
}

func (c *Catalog) DefaultPropertyTypes() string {
	return strings.Join(c.PropertyTypes, ",")
}

func (c *Catalog) CityNames() []string {
	out := make([]string, 0, len(c.Cities))
	for _, ct := range c.Cities {
		out = append(out, ct.Name)
	}
	return out
}

func (c *Catalog) Source(selector string) (SourceConfig, bool) {
	s, ok := c.Sources[selector]
	return s, ok
}
