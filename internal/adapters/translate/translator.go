// Package translate talks to LibreTranslate-compatible mirrors.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/restclient"
	"estate_assistant/internal/domain"
)

type Translator struct {
	rc        *restclient.Client
	endpoints []string
	apiKey    string
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
}

// New tries endpoints in the given order on every call.
func New(endpoints []string, apiKey string, opts ...restclient.Option) *Translator {
	return &Translator{
		rc:        restclient.New("translate", 10, 15*time.Second, opts...),
		endpoints: endpoints,
		apiKey:    apiKey,
	}
}

func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}
	body, err := json.Marshal(request{Q: text, Source: source, Target: target, Format: "text", APIKey: t.apiKey})
	if err != nil {
		return "", fmt.Errorf("encode translate body: %w", err)
	}

	var errs []error
	for _, ep := range t.endpoints {
		var out response
		// mirrors get one attempt each; the next mirror is the retry
		err := t.rc.Do(ctx, restclient.Request{
			Method:      http.MethodPost,
			URL:         ep,
			Endpoint:    "translate",
			ContentType: "application/json",
			Body:        body,
			NoRetry:     true,
		}, &out)
		if err == nil && strings.TrimSpace(out.TranslatedText) != "" {
			return out.TranslatedText, nil
		}
		if err == nil {
			err = errors.New("empty translation")
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Str("component", "translate").Str("endpoint", ep).Msg("mirror failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", ep, err))
	}
	return "", fmt.Errorf("%w: %w", domain.ErrAllTranslationServicesUnavailable, errors.Join(errs...))
}
