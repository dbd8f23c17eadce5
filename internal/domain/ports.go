package domain

import (
	"context"
	"time"
)

// ActorRunner starts one actor run, waits for it and returns its dataset items.
type ActorRunner interface {
	Run(ctx context.Context, actorID string, input ActorInput) (ActorRunResult, error)
}

// SourceAdapter fetches one listing site. It never returns an error; failures
// are reported through SourceResult.
type SourceAdapter interface {
	Name() string
	Selector() string
	Fetch(ctx context.Context, f SearchFilters) SourceResult
}

// FallbackRoute re-requests one source through an alternate backend.
type FallbackRoute interface {
	FetchSource(ctx context.Context, selector string, f SearchFilters) ([]Property, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type Transcriber interface {
	Upload(ctx context.Context, audio []byte) (string, error)
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

type ChatModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Clock lets tests move time without sleeping.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleeper suspends a poll loop between status checks.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits on a real timer and returns ctx.Err() if ctx ends first.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FallbackHeader marks a request issued by a fallback route.
const FallbackHeader = "X-Fallback"

type ctxKey int

const noFallbackKey ctxKey = iota

// WithoutFallback marks ctx so source adapters skip their fallback route.
func WithoutFallback(ctx context.Context) context.Context {
	return context.WithValue(ctx, noFallbackKey, true)
}

func FallbackDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noFallbackKey).(bool)
	return v
}
