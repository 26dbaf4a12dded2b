package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pranay-lamse/crimedigest/internal/api/handlers"
	appMiddleware "github.com/pranay-lamse/crimedigest/internal/api/middlewares"
	"github.com/pranay-lamse/crimedigest/internal/config"
	db "github.com/pranay-lamse/crimedigest/internal/core/database"
	"github.com/pranay-lamse/crimedigest/internal/core/extraction"
	objectclient "github.com/pranay-lamse/crimedigest/internal/core/object-client"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, dbc db.DbClient, obj objectclient.ObjectClient, pipeline *extraction.Pipeline) *Server {
	authHandler := handlers.NewAuthHandler(dbc)
	extractHandler := handlers.NewExtractHandler(dbc, obj, pipeline, cfg)
	reportHandler := handlers.NewReportHandler(dbc, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Serve the dashboard from the web directory
	fileServer := http.FileServer(http.Dir("./web"))
	r.Handle("/*", fileServer)

	r.Get("/health", reportHandler.Health)

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(60 * time.Second))
			public.Post("/signup", authHandler.Signup)
			public.Post("/login", authHandler.Login)
			public.Get("/reports/latest", reportHandler.LatestReportData)
		})

		// protected endpoints; no request timeout here, extraction runs
		// are long-lived and carry their own per-call timeouts
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)
			protected.Post("/extract", extractHandler.ExtractUpload)
			protected.Post("/extract-saved/{filename}", extractHandler.ExtractSaved)
			protected.Get("/pdfs", extractHandler.ListPDFs)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
