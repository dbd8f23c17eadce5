// Package fallback re-requests one source from an alternate backend that
// serves the same /api/properties route.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"estate_assistant/internal/adapters/restclient"
	"estate_assistant/internal/domain"
)

type Client struct {
	base string
	rc   *restclient.Client
}

func New(base string, timeout time.Duration, opts ...restclient.Option) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		rc:   restclient.New("fallback", 5, timeout, opts...),
	}
}

// FetchSource makes exactly one request, flagged so the receiving side does
// not fall back again.
func (c *Client) FetchSource(ctx context.Context, selector string, f domain.SearchFilters) ([]domain.Property, error) {
	q := url.Values{}
	q.Set("city", f.City)
	q.Set("bedrooms", f.Bedrooms)
	q.Set("propertyType", f.PropertyType)
	q.Set("source", selector)

	h := http.Header{}
	h.Set(domain.FallbackHeader, "1")

	var env domain.Envelope
	err := c.rc.Do(ctx, restclient.Request{
		Method:   http.MethodGet,
		URL:      c.base + "/api/properties?" + q.Encode(),
		Endpoint: "properties",
		Header:   h,
		NoRetry:  true,
	}, &env)
	if err != nil {
		var se *restclient.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("fallback %s: status %d", selector, se.Status)
		}
		return nil, fmt.Errorf("fallback %s: %w", selector, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("fallback %s: %s", selector, firstNonEmpty(env.Details, env.Error, "unsuccessful response"))
	}
	return env.Properties, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
