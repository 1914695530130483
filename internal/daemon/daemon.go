// Package daemon runs the clustering engine behind a small net/http
// server: it accepts (weight, x, y) tuples directly and returns a
// dendrogram, wrapped in security headers, panic recovery, a
// concurrency limiter, and graceful shutdown.
package daemon

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/azybler/growing-glyphs/internal/engine"
)

// Config holds server configuration.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxConcurrent int
	CORSOrigin    string

	// ClusterTimeout bounds how long a single POST /v1/cluster request
	// may spend inside engine.Run before the handler gives up.
	ClusterTimeout time.Duration

	// EngineConfig is passed through to engine.Run for every request.
	EngineConfig engine.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:           addr,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxConcurrent:  runtime.NumCPU() * 2,
		ClusterTimeout: 20 * time.Second,
		EngineConfig:   engine.DefaultConfig(),
	}
}

// NewServer builds an *http.Server exposing the cluster and health
// routes, each wrapped in the same middleware chain.
func NewServer(cfg Config) *http.Server {
	mux := http.NewServeMux()
	h := &Handlers{cfg: cfg}

	sem := make(chan struct{}, cfg.MaxConcurrent)
	mux.HandleFunc("POST /v1/cluster", withMiddleware(h.HandleCluster, sem, cfg))
	mux.HandleFunc("GET /v1/health", withMiddleware(h.HandleHealth, sem, cfg))

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe starts srv and blocks until a shutdown signal or a
// fatal listen error.
func ListenAndServe(srv *http.Server) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("daemon listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// withMiddleware wraps handler with security headers, CORS, a
// concurrency limiter, panic recovery, and access logging, applied in
// that order.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			w.Header().Set("Retry-After", "1")
			http.Error(w, `{"error":"service_unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
			}
		}()

		start := time.Now()
		handler(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	}
}
