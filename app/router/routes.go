// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amirphl/call-congress/app/dto"
	"github.com/amirphl/call-congress/app/handlers"
	"github.com/amirphl/call-congress/app/middleware"
	"github.com/amirphl/call-congress/config"
	"github.com/amirphl/call-congress/utils"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app          *fiber.App
	cfg          *config.ProductionConfig
	callHandler  handlers.CallHandlerInterface
	statsHandler handlers.StatsHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	callHandler handlers.CallHandlerInterface,
	statsHandler handlers.StatsHandlerInterface,
) Router {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		AppName:      "call-congress",
		ServerHeader: "call-congress",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:          app,
		cfg:          cfg,
		callHandler:  callHandler,
		statsHandler: statsHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	r.app.Get(healthPath, r.statsHandler.Health)
	if r.cfg.Metrics.Enabled && r.cfg.Metrics.EnablePrometheus {
		path := r.cfg.Metrics.PrometheusPath
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Placement hits the provider and costs money, so it gets its own budget
	r.app.Post(utils.PathCreate, r.limiter(r.cfg.Security.CreateRateLimit), r.callHandler.CreateCall)
	r.app.Get(utils.PathCreate, r.limiter(r.cfg.Security.CreateRateLimit), r.callHandler.CreateCall)

	webhooks := map[string]fiber.Handler{
		utils.PathIncomingCall:       r.callHandler.IncomingCall,
		utils.PathConnection:         r.callHandler.Connection,
		utils.PathZipParse:           r.callHandler.ZipParse,
		utils.PathMakeCalls:          r.callHandler.MakeCalls,
		utils.PathMakeSingleCall:     r.callHandler.MakeSingleCall,
		utils.PathCallComplete:       r.callHandler.CallComplete,
		utils.PathCallCompleteStatus: r.callHandler.CallCompleteStatus,
	}
	for path, h := range webhooks {
		r.app.Get(path, h)
		r.app.Post(path, h)
	}

	reportCache := r.reportCache()
	r.app.Get(utils.PathCount, reportCache, r.statsHandler.Count)
	r.app.Get(utils.PathStats, reportCache, r.statsHandler.Stats)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      r.cfg.Security.XFrameOptions,
		ReferrerPolicy:     r.cfg.Security.ReferrerPolicy,
	}))

	// Public endpoints: wildcard origins cannot carry credentials
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{fiber.HeaderXRequestID},
		AllowCredentials: false,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     r.cfg.Logging.LogWriter(),
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(r.limiter(r.cfg.Security.GlobalRateLimit))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// limiter returns a per-IP limiter allowing max requests per window
func (r *FiberRouter) limiter(max int) fiber.Handler {
	if max <= 0 {
		max = 60
	}
	window := r.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || webhookPaths[c.Path()]
		},
	})
}

// webhookPaths are called back by the provider from a small pool of addresses,
// mid-call, so per-IP limits would cut live calls
var webhookPaths = map[string]bool{
	utils.PathIncomingCall:       true,
	utils.PathConnection:         true,
	utils.PathZipParse:           true,
	utils.PathMakeCalls:          true,
	utils.PathMakeSingleCall:     true,
	utils.PathCallComplete:       true,
	utils.PathCallCompleteStatus: true,
}

// reportCache keys on the full URL so each campaign and secret gets its own entry
func (r *FiberRouter) reportCache() fiber.Handler {
	ttl := r.cfg.Cache.ReportTTL
	if ttl <= 0 {
		ttl = utils.ReportCacheTTL
	}
	return cache.New(cache.Config{
		Expiration:          ttl,
		DisableCacheControl: false,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.OriginalURL()
		},
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	message := "An internal server error occurred"
	if code < fiber.StatusInternalServerError {
		message = strings.TrimSpace(err.Error())
	}
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}
