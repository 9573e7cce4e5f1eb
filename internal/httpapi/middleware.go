// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/credgate/credgate/internal/logging"
)

const (
	siteKey     = "credgate.site"
	siteNameKey = "credgate.site_name"
)

func siteOf(c echo.Context) *Site {
	s, _ := c.Get(siteKey).(*Site)
	return s
}

func siteName(c echo.Context) string {
	if name, ok := c.Get(siteNameKey).(string); ok {
		return name
	}
	return "unknown"
}

// siteMiddleware resolves the request host to a site. Requests reaching a
// base path that belongs to another site are 404s.
func (s *Server) siteMiddleware(basePath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			site := s.sites.resolve(s.requestHost(c))
			if site == nil {
				return echo.NewHTTPError(http.StatusNotFound, MessageUnknownSite)
			}
			c.Set(siteNameKey, site.Name)
			if site.BasePath != basePath {
				return echo.ErrNotFound
			}
			c.Set(siteKey, site)
			return next(c)
		}
	}
}

func (s *Server) requestHost(c echo.Context) string {
	if s.trustProxy {
		if fwd := c.Request().Header.Get("X-Forwarded-Host"); fwd != "" {
			host, _, _ := strings.Cut(fwd, ",")
			return host
		}
	}
	return c.Request().Host
}

// requestID stores the X-Request-Id in the request context so log records
// written by flows carry it.
func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"site", siteName(c),
			}
			level := slog.LevelInfo
			if v.Status >= 500 {
				level = slog.LevelError
			}
			logger.Log(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// metricsMiddleware counts requests by site, route template and status. It
// must wrap the request logger so the status is final.
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		if s.metrics != nil {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.metrics.RecordHTTPRequest(siteName(c), route, c.Response().Status)
		}
		return nil
	}
}
