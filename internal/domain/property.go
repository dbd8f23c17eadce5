package domain

import "time"

// Source names as they appear in the Property.Source field.
const (
	SourceMagicBricks = "MagicBricks"
	SourceHousing     = "Housing.com"
)

// Source selectors accepted in SearchFilters.Source.
const (
	SelectorAll         = "all"
	SelectorMagicBricks = "magicbricks"
	SelectorHousing     = "housing"
)

type Property struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Price       string `json:"price"`
	Bedrooms    string `json:"bedrooms"`
	Area        string `json:"area"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

// SearchFilters is always fully defaulted once it leaves NormalizeFilters.
type SearchFilters struct {
	City         string `json:"city"`
	Bedrooms     string `json:"bedrooms"`
	PropertyType string `json:"propertyType"`
	Source       string `json:"source"`
}

// RawFilters is the untrusted query as received.
type RawFilters struct {
	City         string
	Bedrooms     string
	PropertyType string
	Source       string
}

// SourceResult is what a source adapter hands back. Failures are values, not errors.
type SourceResult struct {
	Source     string
	Success    bool
	Properties []Property
	Error      string
	Message    string
	RunID      string
	Fallback   bool
	Err        error // underlying cause when Success is false
}

type SourceStatus struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type AggregateResult struct {
	Success    bool
	Properties []Property
	Sources    map[string]SourceStatus
	Error      string
	Message    string
	Err        error
}

// Envelope is the Front Door response body for /api/properties.
type Envelope struct {
	Success    bool                    `json:"success"`
	Properties []Property              `json:"properties"`
	City       string                  `json:"city"`
	Source     string                  `json:"source"`
	Count      int                     `json:"count"`
	Sources    map[string]SourceStatus `json:"sources,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Details    string                  `json:"details,omitempty"`
}

// CacheEntry wraps a stored envelope; valid iff now-Timestamp < ExpiresIn.
type CacheEntry struct {
	Envelope  Envelope      `json:"data"`
	Timestamp time.Time     `json:"timestamp"`
	ExpiresIn time.Duration `json:"expiresIn"`
}

func (e CacheEntry) Valid(now time.Time) bool {
	return now.Sub(e.Timestamp) < e.ExpiresIn
}

// RunStatus is the terminal or in-flight state of one actor run.
type RunStatus string

const (
	RunReady     RunStatus = "READY"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunAborted   RunStatus = "ABORTED"
	RunTimedOut  RunStatus = "TIMED-OUT"
)

func (s RunStatus) Terminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunAborted, RunTimedOut:
		return true
	}
	return false
}

// ActorRunResult exists only for the duration of one invocation.
type ActorRunResult struct {
	RunID     string
	Status    RunStatus
	DatasetID string
	Items     []map[string]any
	Polls     int
}

// ActorInput is the job input sent to a scraping actor.
type ActorInput struct {
	URLs             []string    `json:"urls"`
	MaxItemsPerURL   int         `json:"max_items_per_url,omitempty"`
	MaxRetriesPerURL int         `json:"max_retries_per_url"`
	TimeoutSecs      int         `json:"timeout_secs,omitempty"`
	Proxy            ProxyConfig `json:"proxy"`
}

type ProxyConfig struct {
	UseApifyProxy     bool     `json:"useApifyProxy"`
	ApifyProxyGroups  []string `json:"apifyProxyGroups"`
	ApifyProxyCountry string   `json:"apifyProxyCountry"`
}

type CacheStats struct {
	Entries int      `json:"cacheCount"`
	Cities  []string `json:"cacheCities"`
}
