// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package httpapi exposes the login, registration and password reset flows
// of each configured site over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = "64K"

// Recorder receives request and flow outcomes. *observability.Metrics
// implements it.
type Recorder interface {
	RecordFlow(flow, result string)
	RecordHTTPRequest(site, route string, status int)
}

// Options configures a Server.
type Options struct {
	Addr        string
	ReadTimeout time.Duration
	// TrustProxy resolves sites from X-Forwarded-Host when present.
	TrustProxy bool
	Logger     *slog.Logger
	Metrics    Recorder
}

// Server routes requests to site flows.
type Server struct {
	addr        string
	readTimeout time.Duration
	trustProxy  bool
	logger      *slog.Logger
	metrics     Recorder
	sites       *siteTable

	echo       *echo.Echo
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the router for sites.
func NewServer(sites []*Site, opts Options) (*Server, error) {
	if len(sites) == 0 {
		return nil, oops.Code("HTTP_NO_SITES").Errorf("at least one site is required")
	}
	table, err := newSiteTable(sites)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:        opts.Addr,
		readTimeout: opts.ReadTimeout,
		trustProxy:  opts.TrustProxy,
		logger:      logger.With("component", "httpapi"),
		metrics:     opts.Metrics,
		sites:       table,
	}
	s.echo = s.newEcho()
	return s, nil
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(s.logger)

	e.Use(requestID())
	e.Use(s.metricsMiddleware)
	e.Use(requestLogger(s.logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{DisableStackAll: true}))
	e.Use(middleware.BodyLimit(MaxBodyBytes))

	for _, base := range s.sites.basePaths() {
		g := e.Group(strings.TrimRight(base, "/"), s.siteMiddleware(base))
		g.POST("/login", s.handleLogin)
		g.POST("/register", s.handleRegister)
		g.POST("/reset-password/:action", s.handleResetPassword)
	}
	return e
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens and serves in the background. The returned channel carries a
// serve failure, and is closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("HTTP_ALREADY_RUNNING").Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.echo,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	httpSrv := s.httpServer
	go func() {
		defer close(errCh)
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown drains in-flight requests. Shutting down a stopped server is a
// no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Ready reports whether the server is accepting connections.
func (s *Server) Ready() bool {
	return s.running.Load()
}

// Addr is the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
