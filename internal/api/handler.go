package api

import (
	"net/http"
	"time"

	"star-core/internal/events"
	"star-core/internal/monitor"
	"star-core/internal/profile"
	"star-core/internal/runtime"
	"star-core/pkg/cache"
	"star-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the interpreter and the event bus.
type Server struct {
	Router   *gin.Engine
	Bus      *events.Bus
	DB       *db.Database
	Metrics  *monitor.RunMetrics
	Cache    *cache.ProgramCache
	Profiles *profile.Set
	Runtime  runtime.Config
}

// Options carries the tunables of the HTTP surface.
type Options struct {
	Runtime        runtime.Config
	Profiles       *profile.Set
	Cache          *cache.ProgramCache
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

func NewServer(bus *events.Bus, database *db.Database, metrics *monitor.RunMetrics, opts Options) *Server {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 50
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewProgramCache(5*time.Minute, cache.DefaultMaxEntries)
	}

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                                              // Panic recovery (first)
	r.Use(RequestIDMiddleware())                                       // Request ID tracking
	r.Use(RequestLogger(metrics))                                      // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst)) // Rate limiting
	r.Use(TimeoutMiddleware(opts.RequestTimeout))                      // Request timeout
	r.Use(CORSMiddleware())                                            // CORS (last before routes)

	s := &Server{
		Router:   r,
		Bus:      bus,
		DB:       database,
		Metrics:  metrics,
		Cache:    opts.Cache,
		Profiles: opts.Profiles,
		Runtime:  opts.Runtime.WithDefaults(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/parse", s.parseScript)
		api.POST("/transform", s.transformScript)
		api.POST("/transpile", s.transpileScript)
		api.POST("/run", s.runScript)
		api.POST("/conformance", s.runConformance)

		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)
		api.GET("/runs/:id/events", s.getRunEvents)
		api.GET("/profiles", s.listProfiles)

		api.GET("/metrics", s.getMetrics)
		api.GET("/metrics/prom", s.getPromMetrics)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
