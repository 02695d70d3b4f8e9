package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIURL: srv.URL, WebURL: "https://hosting.test"}, logger.NewNop())
}

func TestListOwnerRepos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/acme/repos", r.URL.Path)
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[{"name":"docs"},{"name":"site"}]`))
	})

	repos, err := c.ListOwnerRepos(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "docs", repos[0].Name)
	assert.Equal(t, "site", repos[1].Name)
}

func TestListOwnerReposNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.ListOwnerRepos(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchOwnerRepos(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		assert.Equal(t, "hand book user:acme", r.URL.Query().Get("q"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"name":"handbook"}]}`))
	})

	repos, err := c.SearchOwnerRepos(context.Background(), "acme", " hand book ")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "handbook", repos[0].Name)
}

func TestSearchOwnerReposEmptyItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count":0}`))
	})

	repos, err := c.SearchOwnerRepos(context.Background(), "ghost", "x")
	require.NoError(t, err)
	assert.NotNil(t, repos)
	assert.Empty(t, repos)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden is rate limiting",
			status: http.StatusForbidden,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRateLimited) },
		},
		{
			name:   "too many requests",
			status: http.StatusTooManyRequests,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRateLimited) },
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
			},
		},
		{
			name:   "malformed payload",
			status: http.StatusOK,
			body:   `{"items": [`,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMalformed) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SearchOwnerRepos(context.Background(), "acme", "x")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestLatestRelease(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/handbook/releases/latest", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"tag_name": "v2.1.0",
			"html_url": "https://hosting.test/acme/handbook/releases/tag/v2.1.0",
			"assets": [
				{"id": 42, "name": "handbook.pdf", "browser_download_url": "https://dl.test/42", "size": 2097152, "created_at": "2024-02-03T04:05:06Z"}
			]
		}`))
	})

	rel, err := c.LatestRelease(context.Background(), "acme", "handbook")
	require.NoError(t, err)
	assert.Equal(t, "v2.1.0", rel.TagName)
	require.Len(t, rel.Assets, 1)
	assert.Equal(t, int64(42), rel.Assets[0].ID)
	assert.Equal(t, int64(2097152), rel.Assets[0].Size)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), rel.Assets[0].CreatedAt)
}

func TestRepository(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/handbook", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"handbook","description":"The handbook","topics":["docs","pdf"]}`))
	})

	repo, err := c.Repository(context.Background(), "acme", "handbook")
	require.NoError(t, err)
	assert.Equal(t, "The handbook", repo.Description)
	assert.Equal(t, []string{"docs", "pdf"}, repo.Topics)
}

func TestRepositoryURL(t *testing.T) {
	c := NewClient(Options{WebURL: "https://hosting.test/"}, logger.NewNop())
	assert.Equal(t, "https://hosting.test/acme/hand%20book", c.RepositoryURL("acme", "hand book"))
}

func TestRequestsAreThrottledNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{APIURL: srv.URL, RequestsPerSecond: 1000}, logger.NewNop())
	_, err := c.ListOwnerRepos(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), calls.Load())
}
