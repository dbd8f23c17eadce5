package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	RequestTimeout time.Duration
	CORSOrigins    []string

	CacheBackend string // memory|redis
	CacheTTL     time.Duration
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	ApifyBase         string
	ApifyToken        string
	ApifyRPS          int
	ScrapePollEvery   time.Duration
	ScrapeMaxPolls    int
	FallbackBaseURL   string
	FallbackTimeout   time.Duration
	AssemblyAIBase    string
	AssemblyAIKey     string
	TranscribeMaxPoll int

	TranslateEndpoints []string
	TranslateAPIKey    string

	GeminiBase  string
	GeminiKey   string
	GeminiModel string

	WarmWorkers int
	WarmCron    string
}

func Load() Config {
	// .env is optional; real environment wins over file values.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer in env, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":5000"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		CORSOrigins:    list(env("CORS_ORIGINS", "http://localhost:3000")),

		CacheBackend: strings.ToLower(env("CACHE_BACKEND", "memory")),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),

		ApifyBase:         env("APIFY_BASE_URL", "https://api.apify.com/v2"),
		ApifyToken:        env("APIFY_TOKEN", ""),
		ApifyRPS:          atoi("APIFY_RPS", 5),
		ScrapePollEvery:   time.Duration(atoi("SCRAPE_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		ScrapeMaxPolls:    atoi("SCRAPE_MAX_POLLS", 30),
		FallbackBaseURL:   env("FALLBACK_BASE_URL", ""),
		FallbackTimeout:   time.Duration(atoi("FALLBACK_TIMEOUT_SECONDS", 0)) * time.Second,
		AssemblyAIBase:    env("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"),
		AssemblyAIKey:     env("ASSEMBLYAI_API_KEY", ""),
		TranscribeMaxPoll: atoi("TRANSCRIBE_MAX_POLLS", 60),

		TranslateEndpoints: list(env("TRANSLATE_ENDPOINTS",
			"https://libretranslate.de/translate,https://translate.argosopentech.com/translate,https://libretranslate.com/translate")),
		TranslateAPIKey: env("TRANSLATE_API_KEY", ""),

		GeminiBase:  env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiKey:   env("GEMINI_API_KEY", ""),
		GeminiModel: env("GEMINI_MODEL", "gemini-1.5-flash"),

		WarmWorkers: atoi("WARM_WORKERS", 2),
		WarmCron:    env("WARM_CRON", ""),
	}
	if c.FallbackTimeout <= 0 {
		// the fallback backend runs its own scrape before answering
		c.FallbackTimeout = c.ScrapeBudget() + requestSlack
	}
	if c.ApifyToken == "" {
		log.Warn().Msg("APIFY_TOKEN is empty")
	}
	if c.AssemblyAIKey == "" {
		log.Warn().Msg("ASSEMBLYAI_API_KEY is empty")
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty")
	}
	return c
}

// requestSlack covers the non-poll calls of a scrape (start, dataset read).
const requestSlack = 15 * time.Second

// ScrapeBudget is the longest an actor run may be polled.
func (c Config) ScrapeBudget() time.Duration {
	return c.ScrapePollEvery * time.Duration(c.ScrapeMaxPolls)
}

// ServerTimeout is the per-request deadline for the HTTP server. It is never
// below REQUEST_TIMEOUT_SECONDS and always leaves room for a full scrape plus,
// when a fallback backend is configured, one fallback request.
func (c Config) ServerTimeout() time.Duration {
	need := c.ScrapeBudget() + requestSlack
	if c.FallbackBaseURL != "" {
		need += c.FallbackTimeout
	}
	if c.RequestTimeout > need {
		return c.RequestTimeout
	}
	return need
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
