// Package server provides the HTTP API for rendering CV and resume PDFs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/cv-renderer/internal/rendering"
	"github.com/jonathan/cv-renderer/internal/workspace"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	engine     *rendering.Engine
	workspaces *workspace.Manager
	limiter    *rateLimiter
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	Port          int           `validate:"min=1,max=65535"`
	TemplatesDir  string        `validate:"required"`
	ScratchRoot   string        `validate:"required"`
	ScratchTTL    time.Duration `validate:"min=0"`
	SweepInterval time.Duration `validate:"min=0"`
}

// Default retention for two-step scratch directories.
const (
	DefaultScratchTTL    = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// New creates a new server instance. The template engine is parsed once
// here and never mutated afterwards.
func New(cfg Config) (*Server, error) {
	if cfg.ScratchTTL == 0 {
		cfg.ScratchTTL = DefaultScratchTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	engine, err := rendering.NewEngine(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	workspaces, err := workspace.NewManager(cfg.ScratchRoot, cfg.ScratchTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare scratch root: %w", err)
	}

	s := &Server{
		engine:     engine,
		workspaces: workspaces,
		limiter:    newRateLimiter(defaultBurst, defaultRefillPerSecond),
		validate:   validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /render", s.handleRender)
	mux.HandleFunc("POST /render_json", s.handleRenderJSON)
	mux.HandleFunc("POST /render_json_pdf", s.handleRenderJSONPDF)
	mux.HandleFunc("GET /download/{request_id}/{doc_type}", s.handleDownload)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // pdflatex runs inside the request
		IdleTimeout:  60 * time.Second,
	}

	s.workspaces.StartSweeper(cfg.SweepInterval)

	return s, nil
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.limiter.Stop()
	s.workspaces.Stop()
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// withRateLimit adds per-client rate limiting
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, remaining := s.limiter.allow(clientID)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", defaultBurst))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			log.Printf("[rate-limit] rejected %s", clientID)
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID extracts the client identifier (IP address) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
