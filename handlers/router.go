package handlers

import (
	"net/http"
	"time"

	"github.com/camden-git/familytreebackend/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type RouterConfig struct {
	Trees          *TreeHandler
	Imports        *ImportHandler
	Duplicates     *DuplicateHandler
	Debug          *DebugHandler
	Hub            *realtime.Hub
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter wires the HTTP API. The websocket endpoint is kept out of the request
// timeout.
func NewRouter(rc RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   rc.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	timeout := rc.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Route("/api", func(r chi.Router) {
			r.Post("/imports/preview", rc.Imports.PreviewImport)

			r.Route("/trees/{tree_id}", func(r chi.Router) {
				r.Use(TreeMiddleware)
				r.Get("/", rc.Trees.GetTree)

				r.Post("/members", rc.Trees.AddMember)
				r.Post("/members/batch", rc.Trees.BatchAddMembers)
				r.Post("/relationships", rc.Trees.AddRelationship)
				r.Post("/relationships/batch", rc.Trees.BatchAddRelationships)
				r.Post("/generations", rc.Trees.CalculateGenerations)

				r.Route("/imports", func(r chi.Router) {
					r.Post("/", rc.Imports.QueueImport)
					r.Get("/", rc.Imports.ListImports)
				})

				r.Route("/duplicates", func(r chi.Router) {
					r.Get("/", rc.Duplicates.ListDuplicates)
					r.Post("/merge", rc.Duplicates.MergeDuplicates)
				})
			})
		})

		if rc.Debug != nil {
			r.Route("/debug", func(r chi.Router) {
				r.Get("/imports", rc.Debug.QueueStatus)
			})
		}
	})

	if rc.Hub != nil {
		r.Get("/ws", rc.Hub.ServeWS)
	}
	return r
}
