package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/kathulis/tabkeeper/docs"
	"github.com/kathulis/tabkeeper/internal/api/handler"
	"github.com/kathulis/tabkeeper/internal/api/middleware"
	"github.com/kathulis/tabkeeper/internal/core/domain"
	"github.com/kathulis/tabkeeper/internal/core/ports"
)

// Deps carries everything the router needs. Checks are the readiness probes
// keyed by dependency name. A nil Registry uses the default prometheus
// registry.
type Deps struct {
	Customers ports.CustomerService
	Auth      ports.AuthService
	JWTSecret string
	Checks    map[string]handler.CheckFunc
	Log       zerolog.Logger
	Registry  *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "tabkeeper",
		Registerer: registerer,
	}))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/login", authHandler.Login)

	// --- Customer routes ---
	customerHandler := handler.NewCustomerHandler(d.Customers)
	anyone := middleware.RBAC(domain.RoleAdmin, domain.RoleCustomer)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	customers := e.Group("/customers", middleware.Auth(d.JWTSecret))
	customers.GET("/", customerHandler.List, anyone)
	customers.GET("/:id", customerHandler.Get, anyone)
	customers.POST("/", customerHandler.Create, adminOnly)
	customers.PUT("/:id", customerHandler.Update, adminOnly)
	customers.DELETE("/:id", customerHandler.Delete, adminOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
