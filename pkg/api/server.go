package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/instance"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// Server is the read-only status API served by agent mode. It never mutates
// host state: mutation stays behind the CLI verbs and the run lock.
type Server struct {
	store     storage.Store
	instances *instance.Manager
	recent    *RecentEvents
	engine    *gin.Engine
	http      *http.Server
	logger    zerolog.Logger
}

// NewServer creates a server over the store, instance manager, and event
// broker. The broker feeds the recent-events buffer exposed on the API.
func NewServer(store storage.Store, instances *instance.Manager, broker *events.Broker) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestMetrics())

	s := &Server{
		store:     store,
		instances: instances,
		recent:    NewRecentEvents(broker, DefaultRecentEvents),
		engine:    engine,
		logger:    log.WithComponent("api"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.GET("/modules", s.ListModules)
	v1.GET("/instances", s.ListInstances)
	v1.GET("/backups", s.ListBackups)
	v1.GET("/sites", s.ListSites)
	v1.GET("/events", s.ListEvents)
}

// Start serves the API on addr until Stop is called
func (s *Server) Start(addr string) error {
	s.recent.Start()
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	s.logger.Info().Str("addr", addr).Msg("Status API listening")
	metrics.RegisterComponent("api", true, "")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		metrics.UpdateComponent("api", false, err.Error())
		return fmt.Errorf("status API failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Server) Stop() error {
	s.recent.Stop()
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Healthz reports the agent process's own health
func (s *Server) Healthz(c *gin.Context) {
	health := metrics.GetHealth()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}

// Readyz reports whether the agent's critical components are initialized
func (s *Server) Readyz(c *gin.Context) {
	readiness := metrics.GetReadiness()
	code := http.StatusOK
	if readiness.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, readiness)
}

// ListModules returns the persisted provisioning state of every module
func (s *Server) ListModules(c *gin.Context) {
	records, err := s.store.ListModules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListInstances returns the observed state of every managed instance
func (s *Server) ListInstances(c *gin.Context) {
	ctx := c.Request.Context()
	names, err := s.instances.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	statuses := make([]any, 0, len(names))
	for _, name := range names {
		status, err := s.instances.Status(ctx, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		statuses = append(statuses, status)
	}
	c.JSON(http.StatusOK, statuses)
}

// ListBackups returns backup records, optionally filtered by ?target=
func (s *Server) ListBackups(c *gin.Context) {
	var err error
	var records any
	if target := c.Query("target"); target != "" {
		records, err = s.store.ListBackupsByTarget(target)
	} else {
		records, err = s.store.ListBackups()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListSites returns the registered proxy sites
func (s *Server) ListSites(c *gin.Context) {
	records, err := s.store.ListSites()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// ListEvents returns the most recent provisioning events, newest first
func (s *Server) ListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, s.recent.Snapshot())
}
