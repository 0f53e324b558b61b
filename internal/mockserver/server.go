package mockserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wifiwatch-tui/internal/telemetry"
)

const ClientsPath = "/api/wifi-clients"

type Options struct {
	Addr    string
	Token   string
	Wrap    bool
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Server serves the simulated client list next to /healthz and /metrics.
type Server struct {
	sim    *Simulator
	opts   Options
	logger *slog.Logger
	http   *telemetry.Server
}

func New(sim *Simulator, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	httpServer := telemetry.NewServer(opts.Addr, opts.Metrics)
	s := &Server{sim: sim, opts: opts, logger: logger, http: httpServer}
	s.registerRoutes(httpServer.Engine())
	return s
}

func (s *Server) Handler() http.Handler {
	return s.http.Engine()
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mock endpoint listening", "addr", s.opts.Addr, "path", ClientsPath, "clients", s.sim.Len(), "wrap", s.opts.Wrap)
	return s.http.Run(ctx)
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group(ClientsPath)
	// corsMiddleware answers preflights before auth runs.
	api.Use(s.requestLog(), corsMiddleware())
	if s.opts.Token != "" {
		api.Use(bearerAuthMiddleware(s.opts.Token))
	}
	api.GET("", s.handleClients)
	api.OPTIONS("", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func (s *Server) handleClients(c *gin.Context) {
	clients := s.sim.Step()
	c.Header("Cache-Control", "no-store")
	if s.opts.Wrap {
		c.JSON(http.StatusOK, gin.H{"clients": clients})
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		status := c.Writer.Status()
		s.opts.Metrics.ObserveMockRequest(strconv.Itoa(status))
		s.logger.Debug("mock request",
			"method", c.Request.Method,
			"status", status,
			"duration", time.Since(started),
			"remote", c.ClientIP(),
		)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
