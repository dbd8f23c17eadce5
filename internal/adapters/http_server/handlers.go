package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/app"
	"estate_assistant/internal/domain"
)

const (
	maxJSONBody  = 1 << 20
	maxAudioBody = 25 << 20
)

type Handlers struct {
	Props  *app.PropertyService
	Assist *app.AssistantService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}) })

	s.mux.Get("/api/properties", h.getProperties)
	s.mux.Get("/api/cache/stats", h.cacheStats)
	s.mux.Delete("/api/cache", h.clearCache)

	s.mux.Post("/chatbot", h.chat)
	s.mux.Post("/live-translate", h.liveTranslate)
	s.mux.Post("/translate-text", h.translateText)
	s.mux.Post("/transcribe", h.transcribe)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- properties ----

func (h *Handlers) getProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := domain.RawFilters{
		City:         q.Get("city"),
		Bedrooms:     q.Get("bedrooms"),
		PropertyType: q.Get("propertyType"),
		Source:       q.Get("source"),
	}

	ctx := r.Context()
	if r.Header.Get(domain.FallbackHeader) != "" {
		ctx = domain.WithoutFallback(ctx)
	}

	var (
		lk  app.Lookup
		err error
	)
	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		lk, err = h.Props.Refresh(ctx, raw)
	} else {
		lk, err = h.Props.GetProperties(ctx, raw)
	}
	if err != nil {
		log.Warn().Err(err).Str("city", lk.Filters.City).Str("source", lk.Filters.Source).Msg("property search failed")
		writeJSON(w, http.StatusBadGateway, lk.Envelope)
		return
	}

	etag, body := calcETagAndBody(lk.Envelope)
	if lk.Hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write properties body")
	}
}

type cacheStatsResp struct {
	Success bool `json:"success"`
	domain.CacheStats
}

func (h *Handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Props.CacheStats(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Cache Unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsResp{Success: true, CacheStats: st})
}

func (h *Handlers) clearCache(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	n, err := h.Props.ClearCache(r.Context(), city)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Cache Unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": n, "city": city})
}

// ---- assistant ----

// readValidated reads a JSON body, checks it against the named schema and
// decodes it into dst. It writes the problem response itself on failure.
func readValidated(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Body Too Large", err.Error())
		return false
	}
	if err := validateBody(schema, body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return false
	}
	return true
}

func writeAssistantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrAllTranslationServicesUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Translation Unavailable", err.Error())
	case errors.Is(err, domain.ErrTranscriptionFailed):
		writeProblem(w, http.StatusBadGateway, "Transcription Failed", err.Error())
	default:
		writeProblem(w, http.StatusBadGateway, "Upstream Error", err.Error())
	}
}

func targetLang(explicit string, r *http.Request) string {
	if explicit != "" {
		return explicit
	}
	return selectLang(r.Header.Get("Accept-Language"))
}

// supportedTarget writes a 400 problem and reports false when lang is not served.
func supportedTarget(w http.ResponseWriter, lang string) bool {
	if app.IsSupportedLanguage(lang) {
		return true
	}
	writeProblem(w, http.StatusBadRequest, "Unsupported Language", fmt.Sprintf("targetLanguage %q is not supported", lang))
	return false
}

type chatReq struct {
	Prompt         string `json:"prompt"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handlers) chat(w http.ResponseWriter, r *http.Request) {
	var in chatReq
	if !readValidated(w, r, "chatbot", &in) {
		return
	}
	target := targetLang(in.TargetLanguage, r)
	if !supportedTarget(w, target) {
		return
	}
	out, err := h.Assist.Chat(r.Context(), in.Prompt, in.SourceLanguage, target)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	w.Header().Set("Content-Language", out.TargetLanguage)
	writeJSON(w, http.StatusOK, out)
}

type liveReq struct {
	Text           string `json:"text"`
	AudioURL       string `json:"audioUrl"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handlers) liveTranslate(w http.ResponseWriter, r *http.Request) {
	var in liveReq
	if !readValidated(w, r, "live-translate", &in) {
		return
	}
	target := targetLang(in.TargetLanguage, r)
	if !supportedTarget(w, target) {
		return
	}
	out, err := h.Assist.LiveTranslate(r.Context(), in.Text, in.AudioURL, in.SourceLanguage, target)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type translateReq struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

func (h *Handlers) translateText(w http.ResponseWriter, r *http.Request) {
	var in translateReq
	if !readValidated(w, r, "translate-text", &in) {
		return
	}
	if !supportedTarget(w, in.TargetLanguage) {
		return
	}
	out, err := h.Assist.Translate(r.Context(), in.Text, in.SourceLanguage, in.TargetLanguage)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translatedText": out})
}

// transcribe accepts {"audioUrl": ...} as JSON or the raw audio as the body.
func (h *Handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	var (
		audioURL string
		audio    []byte
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var in struct {
			AudioURL string `json:"audioUrl"`
		}
		if !readValidated(w, r, "transcribe", &in) {
			return
		}
		audioURL = in.AudioURL
	} else {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBody))
		if err != nil {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Body Too Large", err.Error())
			return
		}
		if len(b) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "audio body is empty")
			return
		}
		audio = b
	}

	text, err := h.Assist.Transcribe(r.Context(), audioURL, audio)
	if err != nil {
		writeAssistantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
