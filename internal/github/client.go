// Package github is a read-only client for the repository hosting API:
// repository listing by owner, owner-scoped search, latest releases and
// repository metadata. Requests are unauthenticated and never retried.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

const (
	// DefaultAPIURL is the public API base.
	DefaultAPIURL = "https://api.github.com"
	// DefaultWebURL is the base of repository pages.
	DefaultWebURL = "https://github.com"

	// maxResponseSize caps how much of a response body is read (10MB).
	maxResponseSize = 10 * 1024 * 1024

	userAgent = "shelf/1.0"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIURL  string
	WebURL  string
	Timeout time.Duration // 0 keeps the transport default (no client timeout)
	// RequestsPerSecond throttles outgoing requests when > 0. Requests wait
	// for a token; nothing is retried.
	RequestsPerSecond float64
	PageSize          int
	HTTPClient        *http.Client
}

// Client talks to the hosting API.
type Client struct {
	apiURL   string
	webURL   string
	pageSize int
	http     *http.Client
	limiter  *rate.Limiter
	logger   logger.Logger
}

// NewClient creates a client.
func NewClient(opts Options, log logger.Logger) *Client {
	apiURL := strings.TrimSuffix(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	webURL := strings.TrimSuffix(opts.WebURL, "/")
	if webURL == "" {
		webURL = DefaultWebURL
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		apiURL:   apiURL,
		webURL:   webURL,
		pageSize: pageSize,
		http:     httpClient,
		limiter:  limiter,
		logger:   log,
	}
}

// RepositoryURL returns the hosting page of owner/name.
func (c *Client) RepositoryURL(owner, name string) string {
	return fmt.Sprintf("%s/%s/%s", c.webURL, url.PathEscape(owner), url.PathEscape(name))
}

// ListOwnerRepos lists repositories owned by owner, most recently updated first.
// An unknown owner yields ErrNotFound.
func (c *Client) ListOwnerRepos(ctx context.Context, owner string) ([]Repository, error) {
	q := url.Values{}
	q.Set("sort", "updated")
	q.Set("per_page", strconv.Itoa(c.pageSize))
	endpoint := fmt.Sprintf("%s/users/%s/repos?%s", c.apiURL, url.PathEscape(owner), q.Encode())

	var repos []Repository
	if err := c.getJSON(ctx, endpoint, &repos); err != nil {
		return nil, err
	}
	if repos == nil {
		return []Repository{}, nil
	}
	return repos, nil
}

// SearchOwnerRepos searches repositories matching term, scoped to owner by a
// "user:" qualifier. An unknown owner simply matches nothing.
func (c *Client) SearchOwnerRepos(ctx context.Context, owner, term string) ([]Repository, error) {
	q := url.Values{}
	q.Set("q", SearchQuery(owner, term))
	q.Set("sort", "updated")
	q.Set("per_page", strconv.Itoa(c.pageSize))
	endpoint := fmt.Sprintf("%s/search/repositories?%s", c.apiURL, q.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []Repository{}, nil
	}
	return resp.Items, nil
}

// SearchQuery builds the search expression for term restricted to owner.
func SearchQuery(owner, term string) string {
	return strings.TrimSpace(term) + " user:" + strings.TrimSpace(owner)
}

// LatestRelease fetches the latest published release of owner/name.
func (c *Client) LatestRelease(ctx context.Context, owner, name string) (*Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiURL, url.PathEscape(owner), url.PathEscape(name))

	var release Release
	if err := c.getJSON(ctx, endpoint, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// Repository fetches metadata (description, topics) of owner/name.
func (c *Client) Repository(ctx context.Context, owner, name string) (*Repository, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.apiURL, url.PathEscape(owner), url.PathEscape(name))

	var repo Repository
	if err := c.getJSON(ctx, endpoint, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer utils.Close(resp.Body)

	c.logger.Debug("api request",
		logger.String("url", endpoint),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if err := checkStatus(resp, endpoint); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxResponseSize {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrMalformed, maxResponseSize)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func checkStatus(resp *http.Response, endpoint string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, endpoint)
	default:
		return &StatusError{StatusCode: resp.StatusCode, URL: endpoint, Status: resp.Status}
	}
}
