package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerSuggest) }

func registerSuggest(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Get("/api/suggest", handlers.SuggestState(d))
	g.Post("/api/suggest/owner", handlers.SuggestOwner(d))
	g.Post("/api/suggest/query", handlers.SuggestQuery(d))
	g.Post("/api/suggest/focus", handlers.SuggestFocus(d))
	g.Post("/api/suggest/select", handlers.SuggestSelect(d))
	g.Post("/api/suggest/toggle", handlers.SuggestToggle(d))
	g.Post("/api/suggest/dismiss", handlers.SuggestDismiss(d))
	g.Post("/api/suggest/reset", handlers.SuggestReset(d))
}
