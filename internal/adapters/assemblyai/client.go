// Package assemblyai is the speech-to-text adapter: upload audio, create a
// transcript, poll until it completes.
package assemblyai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/restclient"
	"estate_assistant/internal/domain"
)

type Client struct {
	base     string
	rc       *restclient.Client
	interval time.Duration
	maxPolls int
	sleeper  domain.Sleeper
}

type Option func(*Client)

func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.interval = interval
		}
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
	}
}

func WithSleeper(s domain.Sleeper) Option { return func(c *Client) { c.sleeper = s } }

func New(base, apiKey string, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimRight(base, "/"),
		rc:       restclient.New("assemblyai", 5, 60*time.Second, restclient.WithHeader("Authorization", apiKey)),
		interval: 3 * time.Second,
		maxPolls: 60,
		sleeper:  domain.TimerSleeper{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type uploadResp struct {
	UploadURL string `json:"upload_url"`
}

type transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued | processing | completed | error
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Upload stores raw audio and returns the URL to transcribe.
func (c *Client) Upload(ctx context.Context, audio []byte) (string, error) {
	var out uploadResp
	err := c.rc.Do(ctx, restclient.Request{
		Method:      http.MethodPost,
		URL:         c.base + "/upload",
		Endpoint:    "upload",
		ContentType: "application/octet-stream",
		Body:        audio,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: upload: %w", domain.ErrTranscriptionFailed, err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no url", domain.ErrTranscriptionFailed)
	}
	return out.UploadURL, nil
}

func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	var created transcript
	req := map[string]string{"audio_url": audioURL}
	if err := c.rc.PostJSON(ctx, c.base+"/transcript", "transcript.create", req, &created); err != nil {
		return "", fmt.Errorf("%w: create transcript: %w", domain.ErrTranscriptionFailed, err)
	}

	logger := log.With().Str("component", "assemblyai").Str("transcript_id", created.ID).Logger()
	for poll := 1; poll <= c.maxPolls; poll++ {
		var t transcript
		if err := c.rc.GetJSON(ctx, c.base+"/transcript/"+created.ID, "transcript.get", &t); err != nil {
			return "", fmt.Errorf("%w: poll transcript: %w", domain.ErrTranscriptionFailed, err)
		}
		switch t.Status {
		case "completed":
			logger.Debug().Int("polls", poll).Msg("transcript completed")
			return t.Text, nil
		case "error", "failed":
			return "", fmt.Errorf("%w: %s", domain.ErrTranscriptionFailed, orUnknown(t.Error))
		}
		if err := c.sleeper.Sleep(ctx, c.interval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: transcript %s not ready after %d polls", domain.ErrTranscriptionFailed, created.ID, c.maxPolls)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}
