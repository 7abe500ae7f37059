package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trader-explorer/internal/observability"
	"trader-explorer/internal/storage"
)

const sessionKey = "session"

// withSession acquires one store session per request and releases it after
// the handler chain returns.
func withSession(sessions storage.SessionProvider, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessions.Acquire(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("acquire session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Detail: "Internal Server Error"})
			return
		}
		defer s.Release()

		c.Set(sessionKey, s)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) storage.Session {
	return c.MustGet(sessionKey).(storage.Session)
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func requestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
