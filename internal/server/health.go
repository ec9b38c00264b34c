package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abduss/foldershare/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type checkError struct {
	component string
	err       error
}

func (e *checkError) Error() string { return e.component + ": " + e.err.Error() }

func (e *checkError) Unwrap() error { return e.err }

func registerHealthRoutes(router *gin.Engine, deps Dependencies, log *zap.Logger) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		checks := []struct {
			component string
			pinger    Pinger
		}{
			{"postgres", deps.DB},
			{"blob", deps.Blob},
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			check := check
			g.Go(func() error {
				if err := check.pinger.Ping(gctx); err != nil {
					return &checkError{component: check.component, err: err}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			component := "unknown"
			var ce *checkError
			if errors.As(err, &ce) {
				component = ce.component
			}
			logger.For(log, c).Warn("readiness check failed", zap.String("component", component), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"component": component,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
