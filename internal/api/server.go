// Package api provides the HTTP server for AgentForm.
//
// It exposes the streaming prompt generation endpoint together with read-only
// views of the framework table, the configured questionnaire, recorded
// submissions and generation receipts.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BTreeMap/AgentForm/internal/flow"
	"github.com/BTreeMap/AgentForm/internal/genai"
	"github.com/BTreeMap/AgentForm/internal/promptgen"
	"github.com/BTreeMap/AgentForm/internal/store"
)

// Default configuration constants
const (
	// DefaultServerAddress is the default address the API server listens on
	DefaultServerAddress = ":8080"
	// DefaultRequestTimeout bounds a single prompt generation
	DefaultRequestTimeout = 2 * time.Minute
	// DefaultShutdownTimeout is how long in-flight requests get on shutdown
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout guards against slow clients
	DefaultReadHeaderTimeout = 10 * time.Second
	// MaxRequestBodyBytes caps JSON request bodies
	MaxRequestBodyBytes = 1 << 20
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	RequestTimeout time.Duration
	Questionnaire  *flow.Questionnaire
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRequestTimeout bounds each prompt generation. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// WithQuestionnaire replaces the built-in agent wizard served by the API.
func WithQuestionnaire(q flow.Questionnaire) Option {
	return func(o *Opts) {
		o.Questionnaire = &q
	}
}

// Server holds all dependencies for the API server.
type Server struct {
	addr           string
	requestTimeout time.Duration
	proxy          *promptgen.Proxy
	st             store.Store
	questionnaire  flow.Questionnaire
	router         chi.Router
}

// NewServer wires the routes for the given proxy and store.
func NewServer(proxy *promptgen.Proxy, st store.Store, opts ...Option) *Server {
	cfg := Opts{
		Addr:           DefaultServerAddress,
		RequestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		addr:           cfg.Addr,
		requestTimeout: cfg.RequestTimeout,
		proxy:          proxy,
		st:             st,
	}
	if cfg.Questionnaire != nil {
		s.questionnaire = *cfg.Questionnaire
	} else {
		s.questionnaire = flow.AgentWizard(promptgen.FrameworkNames())
	}
	s.router = s.routes()
	slog.Debug("Server.NewServer: configured", "addr", s.addr, "requestTimeout", s.requestTimeout, "questionnaire", s.questionnaire.Name)
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/healthz", s.healthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Post("/getPrompt", s.getPromptHandler)
		r.Get("/frameworks", s.frameworksHandler)
		r.Get("/questionnaire", s.questionnaireHandler)
		r.Post("/submissions", s.addSubmissionHandler)
		r.Get("/submissions", s.listSubmissionsHandler)
		r.Get("/submissions/{id}", s.getSubmissionHandler)
		r.Get("/receipts", s.receiptsHandler)
	})
	return r
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.ListenAndServe: API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server.ListenAndServe: server failed", "error", err)
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Server.ListenAndServe: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.ListenAndServe: graceful shutdown failed", "error", err)
		return fmt.Errorf("api server shutdown: %w", err)
	}
	slog.Info("Server.ListenAndServe: stopped")
	return nil
}

// Run builds the store, the provider client and the server from their options
// and serves until ctx is cancelled.
func Run(ctx context.Context, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	st, err := store.Open(storeOpts...)
	if err != nil {
		slog.Error("Run: failed to open store", "error", err)
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("Run: failed to close store", "error", cerr)
		}
	}()

	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Error("Run: failed to create GenAI client", "error", err)
		return err
	}

	proxy := promptgen.NewProxy(client, promptgen.WithRecorder(st))
	return NewServer(proxy, st, apiOpts...).ListenAndServe(ctx)
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			slog.Debug("Server.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"requestID", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
