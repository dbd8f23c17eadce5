package app_test

import (
	"context"
	"sync"
	"time"

	"estate_assistant/internal/domain"
)

// ---- fakes ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeAdapter struct {
	name, selector string
	delay          time.Duration
	result         domain.SourceResult

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Name() string     { return f.name }
func (f *fakeAdapter) Selector() string { return f.selector }
func (f *fakeAdapter) Fetch(ctx context.Context, _ domain.SearchFilters) domain.SourceResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	r := f.result
	r.Source = f.name
	return r
}

func (f *fakeAdapter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okAdapter(selector string, ids ...string) *fakeAdapter {
	props := make([]domain.Property, 0, len(ids))
	for _, id := range ids {
		props = append(props, domain.Property{ID: id, Title: selector + ":" + id, Source: selector})
	}
	return &fakeAdapter{name: selector, selector: selector, result: domain.SourceResult{Success: true, Properties: props}}
}

func failingAdapter(selector, msg string, err error) *fakeAdapter {
	return &fakeAdapter{name: selector, selector: selector, result: domain.SourceResult{Error: msg, Err: err}}
}

type fakeRunner struct {
	items []map[string]any
	err   error
}

func (f *fakeRunner) Run(context.Context, string, domain.ActorInput) (domain.ActorRunResult, error) {
	if f.err != nil {
		return domain.ActorRunResult{}, f.err
	}
	return domain.ActorRunResult{RunID: "run", Status: domain.RunSucceeded, Items: f.items}, nil
}
