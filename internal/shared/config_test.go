package shared

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("TRANSLATE_ENDPOINTS", "")
	t.Setenv("SCRAPE_MAX_POLLS", "")

	c := Load()
	if c.CacheTTL != time.Hour {
		t.Fatalf("default ttl: %v", c.CacheTTL)
	}
	if c.ScrapeMaxPolls != 30 {
		t.Fatalf("default max polls: %d", c.ScrapeMaxPolls)
	}
	if len(c.TranslateEndpoints) != 3 {
		t.Fatalf("expected 3 default mirrors, got %v", c.TranslateEndpoints)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("TRANSLATE_ENDPOINTS", " http://a/translate , ,http://b/translate")
	t.Setenv("SCRAPE_MAX_POLLS", "not-a-number")

	c := Load()
	if c.CacheTTL != 2*time.Minute {
		t.Fatalf("ttl: %v", c.CacheTTL)
	}
	if c.CacheBackend != "redis" {
		t.Fatalf("backend: %q", c.CacheBackend)
	}
	if len(c.TranslateEndpoints) != 2 || c.TranslateEndpoints[1] != "http://b/translate" {
		t.Fatalf("endpoints: %v", c.TranslateEndpoints)
	}
	if c.ScrapeMaxPolls != 30 {
		t.Fatalf("invalid int should fall back to default, got %d", c.ScrapeMaxPolls)
	}
}

func TestServerTimeoutCoversScrapeAndFallback(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "120")
	t.Setenv("SCRAPE_POLL_INTERVAL_MS", "2000")
	t.Setenv("SCRAPE_MAX_POLLS", "30")
	t.Setenv("FALLBACK_TIMEOUT_SECONDS", "")

	t.Setenv("FALLBACK_BASE_URL", "")
	c := Load()
	if got := c.ServerTimeout(); got != 120*time.Second {
		t.Fatalf("without fallback: %v", got)
	}

	t.Setenv("FALLBACK_BASE_URL", "http://peer:5000")
	c = Load()
	if c.FallbackTimeout != 75*time.Second {
		t.Fatalf("derived fallback timeout: %v", c.FallbackTimeout)
	}
	got := c.ServerTimeout()
	if got <= c.ScrapeBudget()+c.FallbackTimeout {
		t.Fatalf("server timeout %v does not cover poll budget %v plus fallback %v", got, c.ScrapeBudget(), c.FallbackTimeout)
	}
	if got != 150*time.Second {
		t.Fatalf("with fallback: %v", got)
	}
}

func TestServerTimeoutKeepsLargerConfiguredValue(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "600")
	t.Setenv("FALLBACK_BASE_URL", "http://peer:5000")
	t.Setenv("FALLBACK_TIMEOUT_SECONDS", "30")
	t.Setenv("SCRAPE_POLL_INTERVAL_MS", "")
	t.Setenv("SCRAPE_MAX_POLLS", "")

	c := Load()
	if c.FallbackTimeout != 30*time.Second {
		t.Fatalf("explicit fallback timeout: %v", c.FallbackTimeout)
	}
	if got := c.ServerTimeout(); got != 600*time.Second {
		t.Fatalf("server timeout: %v", got)
	}
}
