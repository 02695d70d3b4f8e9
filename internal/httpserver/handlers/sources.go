package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/registry"
)

type sourceResponse struct {
	ID      domain.SourceID `json:"id"`
	Kind    domain.Kind     `json:"kind"`
	AddedAt time.Time       `json:"added_at"`
	Owner   string          `json:"owner,omitempty"`
	Repo    string          `json:"repo,omitempty"`
	URL     string          `json:"url,omitempty"`
	Name    string          `json:"name,omitempty"`
}

func toSourceResponse(s domain.Source) sourceResponse {
	out := sourceResponse{ID: s.ID, Kind: s.Kind, AddedAt: s.AddedAt}
	switch s.Kind {
	case domain.KindRepoRelease:
		out.Owner, out.Repo = s.Repo.Owner, s.Repo.Name
	case domain.KindDirectLink:
		out.URL, out.Name = s.Link.URL, s.Link.DisplayName
	}
	return out
}

type addSourceRequest struct {
	Kind  domain.Kind `json:"kind"`
	Owner string      `json:"owner"`
	Repo  string      `json:"repo"`
	URL   string      `json:"url"`
	Name  string      `json:"name"`
}

type renameSourceRequest struct {
	Name string `json:"name"`
}

// ListSources returns the registered sources in registration order.
func ListSources(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources := d.Registry.List()
		out := make([]sourceResponse, 0, len(sources))
		for _, s := range sources {
			out = append(out, toSourceResponse(s))
		}
		writeJSON(w, d.Logger, http.StatusOK, out)
	}
}

// AddSource registers a repoRelease or directLink source. Adding a repository
// also resets the suggestion controller.
func AddSource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addSourceRequest
		if err := decodeBody(r, w, &req); err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid request body")
			return
		}

		var src domain.Source
		switch req.Kind {
		case domain.KindRepoRelease:
			src = domain.NewRepoSource(req.Owner, req.Repo)
		case domain.KindDirectLink:
			src = domain.NewLinkSource(req.URL, req.Name)
		default:
			writeError(w, d.Logger, http.StatusBadRequest, "kind must be repoRelease or directLink")
			return
		}

		added, err := d.Registry.Add(r.Context(), src)
		if err != nil {
			writeRegistryError(w, d, err)
			return
		}

		if added.Kind == domain.KindRepoRelease && d.Suggest != nil {
			d.Suggest.Reset()
		}

		writeJSON(w, d.Logger, http.StatusCreated, toSourceResponse(added))
	}
}

// RemoveSource deletes a source. Unknown ids are not an error.
func RemoveSource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.SourceID(chi.URLParam(r, "id"))
		if err := d.Registry.Remove(r.Context(), id); err != nil {
			writeRegistryError(w, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RenameSource changes the display name of a directLink source.
func RenameSource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req renameSourceRequest
		if err := decodeBody(r, w, &req); err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid request body")
			return
		}

		id := domain.SourceID(chi.URLParam(r, "id"))
		renamed, err := d.Registry.Rename(r.Context(), id, req.Name)
		if err != nil {
			writeRegistryError(w, d, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, toSourceResponse(renamed))
	}
}

func writeRegistryError(w http.ResponseWriter, d deps.Deps, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidSource):
		writeError(w, d.Logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, d.Logger, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrNotRenamable):
		writeError(w, d.Logger, http.StatusConflict, err.Error())
	default:
		d.Logger.Error("registry write failed", logger.Error(err))
		writeError(w, d.Logger, http.StatusInternalServerError, "failed to save sources")
	}
}
