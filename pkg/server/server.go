// Package server exposes netlens over HTTP.
//
// The service has three parts:
//
//   - the community detection endpoint the HTTP detector speaks to
//     (POST /history/analyze/communities)
//   - stateless graph utilities (/stats, /customize, /render) and the
//     research record store (/research)
//   - explorer sessions (/sessions), one interactive view per session with
//     filters, detection, customization and reset
//
// Every session response carries the notifications the operation produced,
// so clients can show them as toasts.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/detect"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/metrics"
	"github.com/matzehuels/netlens/pkg/store"
)

// Options configures a Server.
type Options struct {
	// Store holds research records. Defaults to a MemoryStore.
	Store store.Store

	// Analyzer answers the detection endpoint. Defaults to in-process
	// Louvain.
	Analyzer community.Detector

	// Detector runs detection for sessions. Defaults to Analyzer.
	Detector community.Detector

	// Settings are the initial visualization settings of new sessions.
	Settings *customize.Settings

	// AutoDetect runs detection when a session opens.
	AutoDetect bool

	// Metrics records served requests. Gatherer, when set, is exposed on
	// /metrics.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// AllowedOrigins enables CORS for browser clients.
	AllowedOrigins []string

	// FilterOptions are passed to every session's filter engine.
	FilterOptions []filter.Option

	// SessionTTL drops sessions idle for longer. Defaults to
	// DefaultSessionTTL.
	SessionTTL time.Duration

	// MaxSessions caps open sessions; the least recently used one is dropped
	// to make room. Defaults to DefaultMaxSessions.
	MaxSessions int

	Logger *log.Logger
}

// Session limits.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// Server is the HTTP service.
type Server struct {
	opts     Options
	logger   *log.Logger
	validate *validator.Validate

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// New returns a server with defaults filled in.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Analyzer == nil {
		opts.Analyzer = detect.Louvain{}
	}
	if opts.Detector == nil {
		opts.Detector = opts.Analyzer
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger,
		validate: validator.New(),
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post(community.DetectPath, s.analyzeCommunities)
	r.Post("/stats", s.stats)
	r.Post("/customize", s.customize)
	r.Post("/render", s.render)

	r.Route("/research", func(r chi.Router) {
		r.Get("/", s.listResearch)
		r.Post("/", s.createResearch)
		r.Get("/{id}", s.getResearch)
		r.Delete("/{id}", s.deleteResearch)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/graph", s.sessionGraph)
			r.Get("/stats", s.sessionStats)
			r.Get("/search", s.sessionSearch)
			r.Get("/render", s.sessionRender)
			r.Post("/filters/{filter}", s.toggleFilter)
			r.Post("/communities", s.detectCommunities)
			r.Post("/customize", s.customizeSession)
			r.Post("/reset", s.resetSession)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Close releases the store.
func (s *Server) Close() error {
	return s.opts.Store.Close()
}

// requestLogger logs each request and records it when metrics are set.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveRequest(r.Method, route, status, d)
		}
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d.Round(time.Millisecond),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
