package restclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/adapters/restclient"
	"estate_assistant/internal/domain"
)

func noDelay(int) time.Duration { return 0 }

func TestClient_GetJSON_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "abc"})
		}
	}))
	defer ts.Close()

	cl := restclient.New("test", 100, time.Second, restclient.WithBackoff(noDelay))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got map[string]any
	if err := cl.GetJSON(ctx, ts.URL, "get", &got); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["id"] != "abc" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_NoRetry(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(503)
	}))
	defer ts.Close()

	cl := restclient.New("test", 100, time.Second, restclient.WithBackoff(noDelay))
	err := cl.Do(context.Background(), restclient.Request{Method: http.MethodPost, URL: ts.URL, NoRetry: true}, nil)
	var se *restclient.StatusError
	if !errors.As(err, &se) || se.Status != 503 {
		t.Fatalf("expected 503 status error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single call, got %d", hits)
	}
}

func TestClient_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := restclient.New("test", 100, time.Second)
	err := cl.GetJSON(context.Background(), ts.URL, "get", &map[string]any{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_PostJSON_SendsHeadersAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer ts.Close()

	cl := restclient.New("test", 100, time.Second, restclient.WithHeader("Authorization", "Bearer tok"))
	var out map[string]string
	if err := cl.PostJSON(context.Background(), ts.URL, "post", map[string]string{"q": "hello"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if out["echo"] != "hello" {
		t.Fatalf("unexpected echo: %+v", out)
	}
}

func TestClient_BadStatusCarriesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("  bad input \n"))
	}))
	defer ts.Close()

	cl := restclient.New("test", 100, time.Second)
	err := cl.GetJSON(context.Background(), ts.URL, "get", nil)
	var se *restclient.StatusError
	if !errors.As(err, &se) || se.Status != 400 || se.Body != "bad input" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestClient_NetworkErrorIsCounted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	counter := observability.ExternalErrors.WithLabelValues("refused", "get", "*net.OpError")
	before := counterValue(t, counter)

	cl := restclient.New("refused", 100, time.Second, restclient.WithAttempts(2), restclient.WithBackoff(noDelay))
	if err := cl.GetJSON(context.Background(), addr, "get", nil); err == nil {
		t.Fatal("expected a dial error")
	}
	if got := counterValue(t, counter) - before; got != 2 {
		t.Fatalf("expected 2 counted failures, got %v", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
