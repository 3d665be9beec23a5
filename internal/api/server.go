// Package api exposes the management HTTP surface: campaign CRUD, the
// start/stop/post-now controls, scheduler status, post history, and
// credential configuration.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/twitter-agent/internal/campaign"
	"github.com/twitter-agent/internal/scheduler"
	"github.com/twitter-agent/internal/secrets"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/pkg/logger"
)

// Server hosts the management API
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer wires the handlers and builds the HTTP server
func NewServer(port int, campaigns *campaign.Service, loop *scheduler.Loop, store *secrets.Store, repo storage.Repository, log *logger.Logger) *Server {
	h := &handlers{
		campaigns: campaigns,
		loop:      loop,
		secrets:   store,
		repo:      repo,
		log:       log.WithComponent("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/ping", h.ping)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.listCampaigns)
			r.Post("/", h.createCampaign)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCampaign)
				r.Put("/", h.updateCampaign)
				r.Post("/start", h.startCampaign)
				r.Post("/stop", h.stopCampaign)
				r.Post("/post-now", h.postNow)
			})
		})

		r.Get("/scheduler/status", h.schedulerStatus)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listPosts)
			r.Get("/campaign/{id}", h.listCampaignPosts)
		})

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/", h.credentialsStatus)
			r.Post("/", h.saveCredentials)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		log: log.WithComponent("api"),
	}
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each request at debug level
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}
