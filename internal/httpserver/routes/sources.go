package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/handlers"
)

func init() { Register(registerSources) }

func registerSources(r chi.Router, d deps.Deps) {
	g := guarded(r, d)
	g.Get("/api/sources", handlers.ListSources(d))
	g.Post("/api/sources", handlers.AddSource(d))
	g.Delete("/api/sources/{id}", handlers.RemoveSource(d))
	g.Patch("/api/sources/{id}", handlers.RenameSource(d))
}
