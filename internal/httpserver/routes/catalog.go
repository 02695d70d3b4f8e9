package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerCatalog) }

func registerCatalog(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Get("/api/documents", handlers.Documents(d))
	g.Post("/api/refresh", handlers.Refresh(d))
	g.Get("/api/repos/{owner}/{repo}", handlers.RepoDetails(d))
}
