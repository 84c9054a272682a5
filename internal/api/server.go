package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reelhouse/reelhouse/internal/api/handlers"
	apimw "github.com/reelhouse/reelhouse/internal/api/middleware"
	"github.com/reelhouse/reelhouse/internal/api/ratelimit"
	"github.com/reelhouse/reelhouse/internal/cache"
	"github.com/reelhouse/reelhouse/internal/cast"
	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/database"
	"github.com/reelhouse/reelhouse/internal/library/movies"
	"github.com/reelhouse/reelhouse/internal/scheduler"
	"github.com/reelhouse/reelhouse/internal/scheduler/tasks"
	"github.com/reelhouse/reelhouse/internal/search"
	"github.com/reelhouse/reelhouse/internal/search/providers"
	"github.com/reelhouse/reelhouse/internal/validation"
	"github.com/reelhouse/reelhouse/internal/websocket"
)

// Server handles HTTP requests for the Reelhouse API.
type Server struct {
	echo      *echo.Echo
	db        *database.DB
	hub       *websocket.Hub
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger
	cfg       *config.Config
	startTime time.Time

	// Services
	movieService  *movies.Service
	searchService *search.Service
	searchCache   cache.Cache
	searcher      search.Searcher
	discovery     *cast.CachedDiscovery
	castRegistry  *cast.Registry
	rateLimiter   *ratelimit.Limiter
}

// NewServer creates a new API server instance. hub may be nil, in which case
// no real-time events are published.
func NewServer(db *database.DB, hub *websocket.Hub, sched *scheduler.Scheduler, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.EchoValidator{}

	s := &Server{
		echo:      e,
		db:        db,
		hub:       hub,
		scheduler: sched,
		logger:    logger,
		cfg:       cfg,
		startTime: time.Now(),
	}

	// Initialize services
	var movieEvents movies.Broadcaster
	if hub != nil {
		movieEvents = hub
	}
	s.movieService = movies.NewService(db.Conn(), movieEvents, logger)

	s.searchService = search.NewService(
		providers.Build(cfg, s.movieService, logger),
		search.Config{ProviderTimeout: cfg.Search.ProviderTimeout},
		logger,
	)
	s.searchCache = cache.New(cfg.Cache, logger)
	s.searcher = cache.NewCachedSearcher(s.searchService, s.searchCache, cfg.Cache.TTL, logger)

	var source cast.Discovery = cast.NewStaticDiscovery(nil)
	if cfg.Cast.DevicesFile != "" {
		source = cast.NewFileDiscovery(cfg.Cast.DevicesFile)
	}
	s.discovery = cast.NewCachedDiscovery(source, logger)
	s.castRegistry = cast.NewRegistry(s.discovery, sched, cast.Config{ConnectDelay: cfg.Cast.ConnectDelay}, logger)

	if hub != nil {
		s.searchService.SetBroadcaster(hub)
		s.castRegistry.SetBroadcaster(hub)
	}

	if err := tasks.RegisterDeviceRefreshTask(sched, s.discovery, &cfg.Cast); err != nil {
		logger.Warn().Err(err).Msg("Failed to register device refresh task")
	}

	if cfg.Server.RateLimit > 0 {
		s.rateLimiter = ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.Server.RateLimit,
			Burst:             cfg.Server.RateLimitBurst,
		})
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// Security headers
	s.echo.Use(apimw.SecurityHeaders("/api"))

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.EqualFold(c.Request().Header.Get("Upgrade"), "websocket")
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/", s.rootInfo)
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.hub != nil {
		s.echo.GET("/ws", s.hub.HandleWebSocket)
	}

	api := s.echo.Group("/api/v1")
	if s.rateLimiter != nil {
		api.Use(s.rateLimiter.Middleware())
	}

	api.GET("/status", s.getStatus)

	moviesGroup := api.Group("/movies")
	movies.NewHandlers(s.movieService).RegisterRoutes(moviesGroup)
	search.NewHandlers(s.searcher).RegisterRoutes(moviesGroup)

	cast.NewHandlers(s.castRegistry).RegisterRoutes(api.Group("/cast"))

	handlers.NewSchedulerHandler(s.scheduler).RegisterRoutes(api.Group("/scheduler"))
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and releases the services it owns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	err := s.echo.Shutdown(ctx)

	s.castRegistry.Shutdown()
	if cerr := s.searchCache.Close(); cerr != nil {
		s.logger.Warn().Err(cerr).Msg("Failed to close search cache")
	}

	return err
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) rootInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    "reelhouse",
		"version": config.Version,
		"docs":    "/api/v1/status",
	})
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse summarizes the running components.
type StatusResponse struct {
	Version          string      `json:"version"`
	StartTime        string      `json:"startTime"`
	Uptime           string      `json:"uptime"`
	MovieCount       int64       `json:"movieCount"`
	DatabaseVersion  int64       `json:"databaseVersion"`
	Sources          []string    `json:"sources"`
	Cache            cache.Stats `json:"cache"`
	CacheHealthy     bool        `json:"cacheHealthy"`
	CacheError       string      `json:"cacheError,omitempty"`
	ActiveSessions   int         `json:"activeSessions"`
	DevicesRefreshed *time.Time  `json:"devicesRefreshedAt,omitempty"`
	WebSocketClients int         `json:"websocketClients"`
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	movieCount, err := s.movieService.Count(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to count movies")
	}
	dbVersion, err := s.db.Version()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read database version")
	}

	resp := StatusResponse{
		Version:         config.Version,
		StartTime:       s.startTime.Format(time.RFC3339),
		Uptime:          time.Since(s.startTime).Round(time.Second).String(),
		MovieCount:      movieCount,
		DatabaseVersion: dbVersion,
		Sources:         s.searchService.Sources(),
		Cache:           s.searchCache.Stats(),
		ActiveSessions:  len(s.castRegistry.ListSessions()),
	}
	if err := cache.Check(ctx, s.searchCache); err != nil {
		s.logger.Warn().Err(err).Msg("Search cache unhealthy")
		resp.CacheError = err.Error()
	} else {
		resp.CacheHealthy = true
	}
	if at := s.discovery.RefreshedAt(); !at.IsZero() {
		resp.DevicesRefreshed = &at
	}
	if s.hub != nil {
		resp.WebSocketClients = s.hub.ClientCount()
	}

	return c.JSON(http.StatusOK, resp)
}
