// Package http provides the HTTP server implementation for the backend.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jetaide/backend/internal/service"
	v1 "github.com/jetaide/backend/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. Authentication is an
// upstream concern; the requesting user arrives in the X-User-ID header.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)
	v1Handler.RegisterRoutes(e)

	return e
}
