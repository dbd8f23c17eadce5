// Package apify runs scraping actors on the Apify platform: start a run,
// poll it until it reaches a terminal status, then read its dataset.
package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/adapters/restclient"
	"estate_assistant/internal/domain"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30
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

func New(base, token string, rps int, opts ...Option) *Client {
	c := &Client{
		base:     base,
		rc:       restclient.New("apify", rps, 30*time.Second, restclient.WithHeader("Authorization", bearer(token))),
		interval: defaultPollInterval,
		maxPolls: defaultMaxPolls,
		sleeper:  domain.TimerSleeper{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}

type runState int

const (
	statePending runState = iota
	statePolling
	stateSucceeded
	stateFailed
	stateTimedOut
)

type runEnvelope struct {
	Data struct {
		ID               string           `json:"id"`
		Status           domain.RunStatus `json:"status"`
		DefaultDatasetID string           `json:"defaultDatasetId"`
	} `json:"data"`
}

// Run starts actorID with input and drives it to a terminal state.
// It never restarts a failed run; the actor's own per-URL retries are the only retries.
func (c *Client) Run(ctx context.Context, actorID string, input domain.ActorInput) (domain.ActorRunResult, error) {
	var res domain.ActorRunResult
	lg := log.With().Str("component", "apify").Str("actor", actorID).Logger()

	st := statePending
	for {
		switch st {
		case statePending:
			run, err := c.start(ctx, actorID, input)
			if err != nil {
				observability.ObserveScrapeRun(actorID, "start_error")
				return res, fmt.Errorf("%w: start actor %s: %v", domain.ErrBackendInvocationFailed, actorID, err)
			}
			res.RunID = run.Data.ID
			res.Status = run.Data.Status
			res.DatasetID = run.Data.DefaultDatasetID
			lg.Info().Str("run", res.RunID).Strs("urls", input.URLs).Msg("actor run started")
			st = statePolling

		case statePolling:
			if res.Polls >= c.maxPolls {
				st = stateTimedOut
				continue
			}
			if err := c.sleeper.Sleep(ctx, c.interval); err != nil {
				return res, err
			}
			res.Polls++
			run, err := c.status(ctx, res.RunID)
			if err != nil {
				observability.ObserveScrapeRun(actorID, "poll_error")
				return res, fmt.Errorf("%w: poll run %s: %v", domain.ErrBackendInvocationFailed, res.RunID, err)
			}
			res.Status = run.Data.Status
			if run.Data.DefaultDatasetID != "" {
				res.DatasetID = run.Data.DefaultDatasetID
			}
			lg.Debug().Str("run", res.RunID).Int("poll", res.Polls).Str("status", string(res.Status)).Msg("actor run status")
			switch {
			case res.Status == domain.RunSucceeded:
				st = stateSucceeded
			case res.Status.Terminal():
				st = stateFailed
			}

		case stateSucceeded:
			items, err := c.items(ctx, res.DatasetID)
			if err != nil {
				observability.ObserveScrapeRun(actorID, "dataset_error")
				return res, fmt.Errorf("%w: dataset %s: %v", domain.ErrBackendInvocationFailed, res.DatasetID, err)
			}
			res.Items = items
			observability.ObserveScrapeRun(actorID, "succeeded")
			lg.Info().Str("run", res.RunID).Int("items", len(items)).Msg("actor run succeeded")
			return res, nil

		case stateFailed:
			observability.ObserveScrapeRun(actorID, "failed")
			lg.Warn().Str("run", res.RunID).Str("status", string(res.Status)).Msg("actor run failed")
			return res, &domain.ScrapeRunError{Status: res.Status, RunID: res.RunID}

		case stateTimedOut:
			observability.ObserveScrapeRun(actorID, "timeout")
			lg.Warn().Str("run", res.RunID).Int("polls", res.Polls).Msg("actor run poll limit reached")
			return res, &domain.ScrapeTimeoutError{RunID: res.RunID, Polls: res.Polls}
		}
	}
}

func (c *Client) start(ctx context.Context, actorID string, input domain.ActorInput) (runEnvelope, error) {
	var out runEnvelope
	body, err := json.Marshal(input)
	if err != nil {
		return out, err
	}
	u := fmt.Sprintf("%s/acts/%s/runs", c.base, url.PathEscape(actorID))
	// a retried POST could start a second billed run
	err = c.rc.Do(ctx, restclient.Request{
		Method: http.MethodPost, URL: u, Endpoint: "runs.start",
		ContentType: "application/json", Body: body, NoRetry: true,
	}, &out)
	if err == nil && out.Data.ID == "" {
		err = fmt.Errorf("start response carried no run id")
	}
	return out, err
}

func (c *Client) status(ctx context.Context, runID string) (runEnvelope, error) {
	var out runEnvelope
	u := fmt.Sprintf("%s/actor-runs/%s", c.base, url.PathEscape(runID))
	err := c.rc.GetJSON(ctx, u, "runs.get", &out)
	return out, err
}

func (c *Client) items(ctx context.Context, datasetID string) ([]map[string]any, error) {
	var out []map[string]any
	u := fmt.Sprintf("%s/datasets/%s/items?format=json&clean=true", c.base, url.PathEscape(datasetID))
	if err := c.rc.GetJSON(ctx, u, "datasets.items", &out); err != nil {
		return nil, err
	}
	return out, nil
}
