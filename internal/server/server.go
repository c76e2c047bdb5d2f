package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	_ "github.com/akolanti/landbot/cmd/api/docs"
	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/handlers"
	"github.com/akolanti/landbot/internal/middleware"
	"github.com/akolanti/landbot/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// NewRouter mounts the chatbot API under /api/chatbot plus /metrics and /swagger.
func NewRouter(h *handlers.Handler, mw *middleware.Middleware) *chi.Mux {
	r := chi.NewRouter()
	initSwagger(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/chatbot", func(r chi.Router) {
		r.Post("/ask/", mw.Wrap(h.Ask, middleware.Limited))
		r.Post("/conversation/", mw.Wrap(h.Conversation, middleware.Limited))
		r.Get("/conversations-list/", mw.Wrap(h.ListConversations, middleware.Public))
		r.Get("/conversation/{id}/messages/", mw.Wrap(h.ConversationMessages, middleware.Public))
		r.Get("/health/", mw.Wrap(h.Health, middleware.Public))
		r.Get("/info/", mw.Wrap(h.Info, middleware.Public))

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/ingest/", mw.Wrap(h.PostIngestHandler, middleware.Private))
			r.Get("/status/{id}", mw.Wrap(h.GetStatusHandler, middleware.Private))
			r.Get("/search/", mw.Wrap(h.SearchHandler, middleware.Limited))
		})
	})
	return r
}

func initSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

func CreateServer(listenAddr string, handler http.Handler) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", listenAddr)
		os.Exit(1)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Info("Force shut down")
		os.Exit(1)
	}
}
