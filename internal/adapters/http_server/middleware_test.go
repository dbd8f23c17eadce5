package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/domain"
)

func TestClientHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5123"
	if got := clientHost(r); got != "10.0.0.9" {
		t.Fatalf("host:port: %s", got)
	}
	r.RemoteAddr = "203.0.113.7"
	if got := clientHost(r); got != "203.0.113.7" {
		t.Fatalf("bare host: %s", got)
	}
}

func TestRecorderKeepsFirstStatus(t *testing.T) {
	rec := &recorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("abc"))
	rec.WriteHeader(http.StatusTeapot)
	if rec.Status() != http.StatusOK || rec.bytes != 3 {
		t.Fatalf("status=%d bytes=%d", rec.Status(), rec.bytes)
	}
}

func TestLoggerRecordsRequestIDAndCache(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(chimw.RequestID)
	m.Use(Logger(zerolog.New(&buf)))
	m.Get("/api/properties", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/properties?city=Pune&source=all", nil)
	req.Header.Set("X-Request-Id", "req-42")
	m.ServeHTTP(httptest.NewRecorder(), req)

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if ev["message"] != "http_request" || ev["req_id"] != "req-42" || ev["cache"] != "HIT" {
		t.Fatalf("event: %v", ev)
	}
	if ev["route"] != "/api/properties" || ev["city"] != "Pune" || ev["source"] != "all" {
		t.Fatalf("event: %v", ev)
	}
}

func TestLoggerOmitsCacheWhenUnset(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chatbot", nil))

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	if _, ok := ev["cache"]; ok {
		t.Fatalf("unexpected cache field: %v", ev)
	}
	if ev["level"] != "warn" || ev["status"] != float64(http.StatusBadGateway) {
		t.Fatalf("event: %v", ev)
	}
}

func TestMetricsLabelsCacheOutcome(t *testing.T) {
	m := chi.NewRouter()
	m.Use(Metrics)
	m.Get("/api/properties", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(http.StatusOK)
	})

	c := observability.HTTPRequests.WithLabelValues("/api/properties", "GET", "200", "miss")
	read := func() float64 {
		var pb dto.Metric
		if err := c.Write(&pb); err != nil {
			t.Fatalf("read counter: %v", err)
		}
		return pb.GetCounter().GetValue()
	}
	before := read()
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	if got := read() - before; got != 1 {
		t.Fatalf("miss counter delta=%v", got)
	}
}

func TestTimeoutWritesFailureEnvelope(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	rr := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/properties", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%s", ct)
	}
	var env domain.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	if env.Success || env.Error == "" || env.Details == "" || env.Message == "" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestTimeoutPassesThroughHandlerHeaders(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "text/plain; charset=utf-8" || rr.Body.String() != "ok" {
		t.Fatalf("code=%d ct=%s body=%q", rr.Code, rr.Header().Get("Content-Type"), rr.Body.String())
	}
}
