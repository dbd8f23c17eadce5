package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/domain"
)

// Timeout abandons a request still running after d. The caller gets a 503
// carrying the same failure envelope /api/properties uses.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(domain.Envelope{
		Success:    false,
		Properties: []domain.Property{},
		Error:      "Request timed out",
		Details:    "request exceeded " + d.String(),
		Message:    "The search took too long. Please try again in a moment.",
	})
	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// handler headers replace this on the normal path
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}

// recorder keeps what the access log and metrics need from a response.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *recorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// cacheOutcome maps the X-Cache header to a metric label.
func cacheOutcome(h http.Header) string {
	switch strings.ToUpper(h.Get("X-Cache")) {
	case "HIT":
		return "hit"
	case "MISS":
		return "miss"
	default:
		return "none"
	}
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		observability.ObserveHTTP(routeOf(r), r.Method, rec.Status(), cacheOutcome(rec.Header()), time.Since(start))
	})
}

// Logger writes one http_request event per request. Property searches also
// carry the cache outcome and the search filters.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			level := zerolog.InfoLevel
			if rec.Status() >= http.StatusInternalServerError {
				level = zerolog.WarnLevel
			}
			ev := l.WithLevel(level).
				Str("req_id", chimw.GetReqID(r.Context())).
				Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", rec.Status()).
				Int("bytes", rec.bytes).
				Dur("duration", time.Since(start)).
				Str("remote", clientHost(r))
			if c := rec.Header().Get("X-Cache"); c != "" {
				ev = ev.Str("cache", c)
			}
			if q := r.URL.Query(); q.Get("city") != "" || q.Get("source") != "" {
				ev = ev.Str("city", q.Get("city")).Str("source", q.Get("source"))
			}
			if r.Header.Get(domain.FallbackHeader) != "" {
				ev = ev.Bool("fallback", true)
			}
			ev.Msg("http_request")
		})
	}
}

// clientHost strips the port from RemoteAddr; chimw.RealIP has already
// applied any forwarding headers.
func clientHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
