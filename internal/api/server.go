// Package api serves the read-only trader analytics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trader-explorer/internal/observability"
	"trader-explorer/internal/storage"
)

// Options configures the router.
type Options struct {
	Sessions storage.SessionProvider

	// Ping reports store health for /health. Optional.
	Ping func(ctx context.Context) error

	// MetricsHandler serves /metrics. Defaults to observability.Handler().
	MetricsHandler http.Handler
	Metrics        *observability.Metrics
	Logger         logrus.FieldLogger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts Options) *gin.Engine {
	if opts.Metrics == nil {
		opts.Metrics = observability.DefaultMetrics
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = observability.Handler()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "api")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(opts.Logger), requestMetrics(opts.Metrics))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		if opts.Ping != nil {
			if err := opts.Ping(c.Request.Context()); err != nil {
				opts.Logger.WithError(err).Warn("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(opts.MetricsHandler))

	h := &handlers{log: opts.Logger}
	g := r.Group("/", withSession(opts.Sessions, opts.Logger))
	g.GET("/overview/", h.overview)
	g.GET("/labels/summary", h.labelSummary)
	g.GET("/footprint/scatter", h.footprintScatter)
	g.GET("/topics/trader/:trader_id", h.traderTopics)
	g.GET("/archetypes/map", h.archetypeMap)
	g.GET("/archetypes/clusters", h.archetypeClusters)
	g.GET("/traders/:trader_id", h.traderProfile)

	return r
}
