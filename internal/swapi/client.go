// Package swapi fetches Star Wars resources from the upstream API and
// normalizes the different payload envelopes it serves.
package swapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/holocron-dev/holocron/internal/apperr"
	"github.com/holocron-dev/holocron/internal/httpclient"
	"github.com/holocron-dev/holocron/internal/retry"
)

// Resource paths relative to the upstream base URL.
const (
	PeoplePath    = "people/"
	FilmsPath     = "films/"
	StarshipsPath = "starships/"
)

const (
	fetchMaxAttempts  = 5
	fetchInitialDelay = 1 * time.Second
	fetchMaxDelay     = 10 * time.Second

	defaultRequestTimeout = 10 * time.Second
)

// Page is one page of upstream results. Next is the URL of the following
// page, or empty when this is the last one.
type Page struct {
	Results []json.RawMessage
	Next    string
}

// Client fetches resource pages from the upstream API.
type Client struct {
	http    httpclient.Client
	baseURL string
}

// NewClient creates a Client for the given base URL. If hc is nil a default
// HTTP client with a 10s timeout is used.
func NewClient(baseURL string, hc httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.NewDefaultClient(defaultRequestTimeout)
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}
}

// ResourceURL returns the absolute URL for a resource path such as
// PeoplePath.
func (c *Client) ResourceURL(resource string) string {
	return c.baseURL + strings.TrimPrefix(resource, "/")
}

// pageURL appends the page query parameter to a resource URL.
func (c *Client) pageURL(resource string, page int) string {
	return fmt.Sprintf("%s?page=%d", c.ResourceURL(resource), page)
}

// Characters fetches one page of the people collection.
func (c *Client) Characters(ctx context.Context, page int) (*Page, error) {
	return c.FetchPage(ctx, c.pageURL(PeoplePath, page))
}

// Films fetches the film collection, which the upstream serves in a single
// unpaginated response.
func (c *Client) Films(ctx context.Context) (*Page, error) {
	return c.FetchPage(ctx, c.ResourceURL(FilmsPath))
}

// Starships fetches one page of the starship collection.
func (c *Client) Starships(ctx context.Context, page int) (*Page, error) {
	return c.FetchPage(ctx, c.pageURL(StarshipsPath, page))
}

// FetchPage fetches one page of results from pageURL, retrying transient
// network failures with exponential backoff. HTTP error statuses are not
// retried. The returned error is always an *apperr.UpstreamError.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	body, err := retry.Do(ctx, "fetch "+pageURL,
		func(ctx context.Context) ([]byte, error) {
			return c.http.Get(ctx, pageURL)
		},
		retry.WithMaxAttempts(fetchMaxAttempts),
		retry.WithInitialDelay(fetchInitialDelay),
		retry.WithMaxDelay(fetchMaxDelay),
	)
	if err != nil {
		return nil, apperr.NewUpstreamError(
			fmt.Sprintf("failed to fetch %s", pageURL), err)
	}

	page, err := normalize(body)
	if err != nil {
		upstreamErr := apperr.NewUpstreamError(
			fmt.Sprintf("unexpected payload from %s", pageURL), err)
		upstreamErr.Body = snippet(body)
		return nil, upstreamErr
	}
	return page, nil
}

// normalize maps the two envelope shapes the upstream serves onto a Page:
// an object with "results" and "next" keys is passed through, a bare array
// is wrapped as a single page. Any other shape is a fatal decode error.
func normalize(body []byte) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	switch trimmed[0] {
	case '{':
		var envelope struct {
			Results []json.RawMessage `json:"results"`
			Next    *string           `json:"next"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode response envelope: %w", err)
		}
		page := &Page{Results: envelope.Results}
		if envelope.Next != nil {
			page.Next = *envelope.Next
		}
		return page, nil
	case '[':
		var results []json.RawMessage
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, fmt.Errorf("failed to decode response array: %w", err)
		}
		return &Page{Results: results}, nil
	default:
		return nil, fmt.Errorf("response is neither an object nor an array")
	}
}

func snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
