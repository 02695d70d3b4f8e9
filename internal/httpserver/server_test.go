package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/shelf/internal/catalog"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/registry"
	"github.com/MrSnakeDoc/shelf/internal/scheduler"
	"github.com/MrSnakeDoc/shelf/internal/store/memory"
	"github.com/MrSnakeDoc/shelf/internal/suggest"
)

// hostingAPI serves the few endpoints shelf calls, for owner "acme".
func hostingAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/users/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"handbook","full_name":"acme/handbook"},{"name":"notes","full_name":"acme/notes"}]`))
	})
	mux.HandleFunc("/repos/acme/handbook/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"tag_name": "v1.2.0",
			"html_url": "https://hosting.test/acme/handbook/releases/v1.2.0",
			"assets": [
				{"id": 10, "name": "handbook.pdf", "browser_download_url": "https://dl.test/handbook.pdf", "size": 2097152, "created_at": "2024-03-01T10:00:00Z"},
				{"id": 11, "name": "checksums.txt", "browser_download_url": "https://dl.test/checksums.txt", "size": 10, "created_at": "2024-03-01T10:00:00Z"}
			]
		}`))
	})
	mux.HandleFunc("/repos/acme/handbook", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"handbook","full_name":"acme/handbook","description":"Team handbook","topics":["docs"]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestDeps(t *testing.T, allowedHosts []string) deps.Deps {
	t.Helper()
	return newLoggedTestDeps(t, allowedHosts, logger.NewNop())
}

func newLoggedTestDeps(t *testing.T, allowedHosts []string, log logger.Logger) deps.Deps {
	t.Helper()

	api := hostingAPI(t)

	reg, err := registry.Open(context.Background(), memory.NewStore(), "sources", log)
	require.NoError(t, err)

	gh := github.NewClient(github.Options{APIURL: api.URL, WebURL: "https://hosting.test"}, log)
	idx := index.NewMemoryIndex()
	fetcher := catalog.NewFetcher(gh, catalog.Options{Location: time.UTC}, log)
	refresher := scheduler.NewCatalogRefresher(reg, fetcher, idx, log, nil)

	sc := suggest.New(gh, reg, suggest.Options{Delay: 10 * time.Millisecond}, log)
	t.Cleanup(sc.Close)

	return deps.Deps{
		Logger:        log,
		StartTime:     time.Now(),
		Version:       "test",
		AllowedHosts:  allowedHosts,
		RateBurst:     1000,
		RatePerMinute: 1000,
		Storage:       "memory",
		Registry:      reg,
		Index:         idx,
		Refresher:     refresher,
		Suggest:       sc,
		GitHub:        gh,
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.RemoteAddr = "192.0.2.1:40000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestReadyzWithMemoryStorage(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	rec := do(t, h, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["ready"])
}

func TestSourceLifecycle(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	rec := do(t, h, http.MethodPost, "/api/sources", map[string]string{
		"kind": "directLink",
		"url":  "https://example.com/files/Annual-Report.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	link := decode[map[string]any](t, rec)
	assert.Equal(t, "Annual-Report", link["name"])
	id := link["id"].(string)

	rec = do(t, h, http.MethodPatch, "/api/sources/"+id, map[string]string{"name": "Report 2024"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Report 2024", decode[map[string]any](t, rec)["name"])

	rec = do(t, h, http.MethodPost, "/api/sources", map[string]string{
		"kind": "repoRelease", "owner": "acme", "repo": "handbook",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	repoID := decode[map[string]any](t, rec)["id"].(string)

	rec = do(t, h, http.MethodPatch, "/api/sources/"+repoID, map[string]string{"name": "nope"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = do(t, h, http.MethodDelete, "/api/sources/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/sources/unknown", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/sources", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestAddSourceLogsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewRouter(newLoggedTestDeps(t, nil, logger.FromZap(zap.New(core))))

	rec := do(t, h, http.MethodPost, "/api/sources", map[string]string{
		"kind": "repoRelease", "owner": "acme", "repo": "handbook",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("source added").Len())
}

func TestAddSourceValidation(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown kind", map[string]string{"kind": "ftp"}},
		{"missing repo", map[string]string{"kind": "repoRelease", "owner": "acme"}},
		{"bad url", map[string]string{"kind": "directLink", "url": "not a url"}},
		{"unknown field", map[string]string{"kind": "directLink", "href": "https://x.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/sources", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRefreshAndDocuments(t *testing.T) {
	d := newTestDeps(t, nil)
	h := NewRouter(d)

	for _, body := range []map[string]string{
		{"kind": "repoRelease", "owner": "acme", "repo": "handbook"},
		{"kind": "repoRelease", "owner": "acme", "repo": "missing"},
		{"kind": "directLink", "url": "https://example.com/guide.pdf", "name": "Guide"},
	} {
		require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/sources", body).Code)
	}

	rec := do(t, h, http.MethodPost, "/api/refresh?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refresh := decode[map[string]any](t, rec)
	assert.Equal(t, true, refresh["applied"])
	assert.EqualValues(t, 2, refresh["documents"])
	assert.EqualValues(t, 1, refresh["failed_sources"])

	rec = do(t, h, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[index.Snapshot](t, rec)
	require.Len(t, snap.Documents, 2)
	assert.Equal(t, 1, snap.Failed)

	names := []string{snap.Documents[0].Name, snap.Documents[1].Name}
	assert.ElementsMatch(t, []string{"handbook.pdf", "Guide"}, names)
	for _, doc := range snap.Documents {
		if doc.Name == "handbook.pdf" {
			assert.Equal(t, "2.00 MB", doc.SizeLabel)
			assert.Equal(t, "v1.2.0", doc.VersionLabel)
			assert.Equal(t, "2024-03-01", doc.DateLabel)
			require.NotNil(t, doc.Repo)
			assert.Equal(t, "https://hosting.test/acme/handbook", doc.Repo.RepositoryURL)
		}
	}
}

func TestRefreshQueued(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	rec := do(t, h, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["triggered"])
}

func TestRepoDetails(t *testing.T) {
	h := NewRouter(newTestDeps(t, nil))

	rec := do(t, h, http.MethodGet, "/api/repos/acme/handbook", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "Team handbook", got["description"])
	assert.Equal(t, []any{"docs"}, got["topics"])
	assert.Equal(t, "https://hosting.test/acme/handbook", got["repository_url"])

	rec = do(t, h, http.MethodGet, "/api/repos/acme/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestEndpoints(t *testing.T) {
	d := newTestDeps(t, nil)
	h := NewRouter(d)

	_, err := d.Registry.Add(context.Background(), domain.NewRepoSource("acme", "notes"))
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/suggest/owner", map[string]string{"value": "acme"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return d.Suggest.Snapshot().Status == suggest.StatusResults
	}, 2*time.Second, 5*time.Millisecond)

	rec = do(t, h, http.MethodGet, "/api/suggest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[suggest.State](t, rec)
	assert.Equal(t, suggest.ModeListing, state.Mode)
	assert.Equal(t, []string{"handbook"}, state.Suggestions)
	assert.True(t, state.DropdownOpen)

	rec = do(t, h, http.MethodPost, "/api/suggest/dismiss", nil)
	assert.False(t, decode[suggest.State](t, rec).DropdownOpen)

	rec = do(t, h, http.MethodPost, "/api/suggest/toggle", nil)
	assert.True(t, decode[suggest.State](t, rec).DropdownOpen)

	rec = do(t, h, http.MethodPost, "/api/suggest/select", map[string]string{"value": "handbook"})
	state = decode[suggest.State](t, rec)
	assert.Equal(t, "handbook", state.Query)
	assert.False(t, state.DropdownOpen)

	rec = do(t, h, http.MethodPost, "/api/sources", map[string]string{
		"kind": "repoRelease", "owner": "acme", "repo": "handbook",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	state = d.Suggest.Snapshot()
	assert.Empty(t, state.Query)
	assert.Equal(t, "acme", state.Owner)
}

func TestHostEnforcement(t *testing.T) {
	h := NewRouter(newTestDeps(t, []string{"shelf.domain.ext"}))

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Host = "evil.test"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Host = "shelf.domain.ext"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health checks stay reachable whatever the Host header.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Host = "evil.test"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	d := newTestDeps(t, nil)
	d.RateBurst = 1
	d.RatePerMinute = 1
	h := NewRouter(d)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
	rec := do(t, h, http.MethodGet, "/api/sources", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
