// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package apiserver exposes the question-answering pipeline over HTTP.
// Ambiguous name resolutions suspend server-side: the chat endpoint
// returns a selection id plus candidates, and the select endpoint
// resumes the stored session with the user's choice.
package apiserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence"
	"github.com/yazeedmshayekh2/CoreReports/services/intelligence/memory"
)

// Solver is what the handlers need from the pipeline. *intelligence.Manager
// satisfies it; tests substitute a stub.
type Solver interface {
	Solve(ctx context.Context, question string) intelligence.Outcome
	Resume(ctx context.Context, state *intelligence.SessionState, choice string) intelligence.Outcome
	Memory() *memory.Store
}

// pendingTTL is how long a suspended selection stays resumable.
const pendingTTL = 10 * time.Minute

type pendingEntry struct {
	state   *intelligence.SessionState
	expires time.Time
}

// pendingStore holds suspended sessions keyed by selection id.
type pendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
}

func newPendingStore() *pendingStore {
	return &pendingStore{entries: map[string]pendingEntry{}}
}

func (p *pendingStore) put(state *intelligence.SessionState) string {
	id := uuid.NewString()
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.entries {
		if time.Now().After(e.expires) {
			delete(p.entries, k)
		}
	}
	p.entries[id] = pendingEntry{state: state, expires: time.Now().Add(pendingTTL)}
	return id
}

func (p *pendingStore) take(id string) (*intelligence.SessionState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok || time.Now().After(e.expires) {
		delete(p.entries, id)
		return nil, false
	}
	delete(p.entries, id)
	return e.state, true
}

// Config carries server tuning.
type Config struct {
	Addr            string
	RequestsPerSec  float64
	Burst           int
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sane defaults for a single-tenant deployment.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		RequestsPerSec:  5,
		Burst:           10,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP front end.
type Server struct {
	engine  *gin.Engine
	solver  Solver
	pending *pendingStore
	limiter *rate.Limiter
	logger  *logging.Logger
	config  Config
}

// New wires routes, middleware, and metrics.
func New(solver Solver, logger *logging.Logger, config Config) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	if config.Addr == "" {
		config = DefaultConfig()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:  engine,
		solver:  solver,
		pending: newPendingStore(),
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSec), config.Burst),
		logger:  logger,
		config:  config,
	}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api", s.rateLimit, s.observe)
	api.POST("/chat", s.handleChat)
	api.POST("/chat/select", s.handleSelect)
	api.GET("/memory", s.handleMemory)
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains with the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.engine}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api server listening", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) rateLimit(c *gin.Context) {
	if !s.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	requestDuration.WithLabelValues(c.FullPath()).Observe(time.Since(start).Seconds())
}
