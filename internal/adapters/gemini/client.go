// Package gemini implements the chat model port on the generateContent API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"estate_assistant/internal/adapters/restclient"
)

var ErrEmptyReply = errors.New("gemini: empty reply")

type Client struct {
	base  string
	key   string
	model string
	rc    *restclient.Client
}

func New(base, key, model string, opts ...restclient.Option) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		key:   key,
		model: model,
		rc:    restclient.New("gemini", 5, 60*time.Second, opts...),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateReq struct {
	Contents []content `json:"contents"`
}

type generateResp struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.base, url.PathEscape(c.model), url.QueryEscape(c.key))
	in := generateReq{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}

	var out generateResp
	if err := c.rc.PostJSON(ctx, u, "generateContent", in, &out); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyReply
	}
	return b.String(), nil
}
