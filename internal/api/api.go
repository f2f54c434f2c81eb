// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/alert"
	"github.com/good-yellow-bee/alertwatch/internal/history"
	"github.com/good-yellow-bee/alertwatch/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	APIKey         string // Static bearer token accepted alongside JWTs
	JWTSecret      []byte
	RateLimitPerIP float64 // Requests per second per client IP
	RateLimitBurst int
	RequestTimeout time.Duration // Timeout for storage-backed API calls
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8090"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 10
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 20
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config     *Config
	storage    storage.Storage
	manager    *alert.Manager
	aggregator *history.Aggregator
	server     *http.Server
}

// New creates a new API server. Either an API key or a JWT secret must
// be configured so that non-loopback clients can authenticate.
func New(cfg *Config, store storage.Storage, manager *alert.Manager, aggregator *history.Aggregator) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if manager == nil {
		return nil, fmt.Errorf("alert manager is required")
	}
	if cfg.APIKey == "" && len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("an API key or JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:     cfg,
		storage:    store,
		manager:    manager,
		aggregator: aggregator,
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
