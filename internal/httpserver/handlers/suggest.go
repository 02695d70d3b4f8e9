package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/suggest"
)

type suggestInput struct {
	Value string `json:"value"`
}

func SuggestState(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, d.Suggest.Snapshot())
	}
}

func SuggestOwner(d deps.Deps) http.HandlerFunc {
	return withValue(d, (*suggest.Controller).SetOwner)
}

func SuggestQuery(d deps.Deps) http.HandlerFunc {
	return withValue(d, (*suggest.Controller).SetQuery)
}

func SuggestSelect(d deps.Deps) http.HandlerFunc {
	return withValue(d, (*suggest.Controller).Select)
}

func SuggestFocus(d deps.Deps) http.HandlerFunc {
	return withoutValue(d, (*suggest.Controller).Focus)
}

func SuggestToggle(d deps.Deps) http.HandlerFunc {
	return withoutValue(d, func(c *suggest.Controller) { c.ToggleDropdown() })
}

func SuggestDismiss(d deps.Deps) http.HandlerFunc {
	return withoutValue(d, (*suggest.Controller).Dismiss)
}

func SuggestReset(d deps.Deps) http.HandlerFunc {
	return withoutValue(d, (*suggest.Controller).Reset)
}

// withValue applies a text input to the controller and answers with the
// resulting state. Debounced searches complete later; poll GET /api/suggest.
func withValue(d deps.Deps, apply func(*suggest.Controller, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in suggestInput
		if err := decodeBody(r, w, &in); err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid request body")
			return
		}
		apply(d.Suggest, in.Value)
		writeJSON(w, d.Logger, http.StatusOK, d.Suggest.Snapshot())
	}
}

func withoutValue(d deps.Deps, apply func(*suggest.Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply(d.Suggest)
		writeJSON(w, d.Logger, http.StatusOK, d.Suggest.Snapshot())
	}
}
