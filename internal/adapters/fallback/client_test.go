package fallback_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"estate_assistant/internal/adapters/fallback"
	"estate_assistant/internal/domain"
)

var pune = domain.SearchFilters{City: "Pune", Bedrooms: "2,3", PropertyType: "Villa", Source: "all"}

func TestFetchSource_SendsMarkerAndDecodes(t *testing.T) {
	var gotHeader, gotSource, gotCity string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(domain.FallbackHeader)
		gotSource, gotCity = r.URL.Query().Get("source"), r.URL.Query().Get("city")
		_ = json.NewEncoder(w).Encode(domain.Envelope{
			Success:    true,
			Properties: []domain.Property{{ID: "p1", Source: domain.SourceHousing}},
			Count:      1,
		})
	}))
	defer ts.Close()

	props, err := fallback.New(ts.URL, time.Second).FetchSource(context.Background(), "housing", pune)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(props) != 1 || props[0].ID != "p1" {
		t.Fatalf("props: %+v", props)
	}
	if gotHeader != "1" || gotSource != "housing" || gotCity != "Pune" {
		t.Fatalf("header=%q source=%q city=%q", gotHeader, gotSource, gotCity)
	}
}

func TestFetchSource_SingleAttemptOnFailure(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	if _, err := fallback.New(ts.URL, time.Second).FetchSource(context.Background(), "magicbricks", pune); err == nil {
		t.Fatalf("expected error")
	}
	if hits != 1 {
		t.Fatalf("expected exactly one attempt, got %d", hits)
	}
}

func TestFetchSource_UnsuccessfulEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Envelope{Success: false, Details: "no data"})
	}))
	defer ts.Close()

	if _, err := fallback.New(ts.URL, time.Second).FetchSource(context.Background(), "housing", pune); err == nil {
		t.Fatalf("expected error")
	}
}
