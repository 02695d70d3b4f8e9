package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/github"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type refreshResponse struct {
	Triggered   bool `json:"triggered"`
	Applied     bool `json:"applied,omitempty"`
	Documents   int  `json:"documents"`
	Failed      int  `json:"failed_sources"`
	NoDocuments bool `json:"no_documents"`
}

type repoDetailsResponse struct {
	FullName      string   `json:"full_name"`
	Description   string   `json:"description"`
	Topics        []string `json:"topics"`
	RepositoryURL string   `json:"repository_url"`
}

// Documents returns the current catalog, newest first.
func Documents(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, d.Index.Snapshot())
	}
}

// Refresh rebuilds the catalog. By default the refresh is queued and the
// request returns at once; with ?wait=true it runs within the request.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
		if !wait {
			d.Refresher.Trigger()
			d.Logger.Info("manual refresh triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusAccepted, refreshResponse{Triggered: true})
			return
		}

		res, applied := d.Refresher.Refresh(r.Context())
		writeJSON(w, d.Logger, http.StatusOK, refreshResponse{
			Triggered:   true,
			Applied:     applied,
			Documents:   len(res.Documents),
			Failed:      res.Failed,
			NoDocuments: res.NoDocuments,
		})
	}
}

// RepoDetails returns the description and topics of a repository.
func RepoDetails(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, name := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")

		repo, err := d.GitHub.Repository(r.Context(), owner, name)
		switch {
		case err == nil:
		case errors.Is(err, github.ErrNotFound):
			writeError(w, d.Logger, http.StatusNotFound, "repository not found")
			return
		case errors.Is(err, github.ErrRateLimited):
			writeError(w, d.Logger, http.StatusTooManyRequests, "API rate limit reached, try again later")
			return
		default:
			d.Logger.Warn("repository lookup failed",
				logger.String("owner", owner),
				logger.String("repo", name),
				logger.Error(err))
			writeError(w, d.Logger, http.StatusBadGateway, "failed to fetch repository")
			return
		}

		topics := repo.Topics
		if topics == nil {
			topics = []string{}
		}
		writeJSON(w, d.Logger, http.StatusOK, repoDetailsResponse{
			FullName:      repo.FullName,
			Description:   repo.Description,
			Topics:        topics,
			RepositoryURL: d.GitHub.RepositoryURL(owner, name),
		})
	}
}
