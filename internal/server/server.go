package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/vaultload/internal/config"
	obslogger "github.com/smallbiznis/vaultload/internal/observability/logger"
	"github.com/smallbiznis/vaultload/internal/observability/metrics"
	obstracing "github.com/smallbiznis/vaultload/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves health, metrics and recent reports while watching.
var Module = fx.Module("http.server",
	fx.Provide(NewStatus),
	fx.Provide(NewEngine),
	fx.Invoke(run),
)

// NewEngine builds the status server. /metrics serves the pipeline registry
// together with the default registry, which holds the DB pool collectors.
func NewEngine(log *zap.Logger, m *metrics.Metrics, status *Status) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if reg := m.Registry(); reg != nil {
		gatherers = append(prometheus.Gatherers{reg}, gatherers...)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"started_at": status.Started().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"files": status.Recent()})
	})
	r.GET("/status/:file_id", func(c *gin.Context) {
		fileID := strings.TrimSpace(c.Param("file_id"))
		report, ok := status.Lookup(fileID)
		if !ok {
			_ = c.Error(fmt.Errorf("%w: no report for %s", ErrNotFound, fileID))
			return
		}
		c.JSON(http.StatusOK, report)
	})
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.Pipeline.ListenAddr)
	if addr == "" {
		log.Info("status server disabled")
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			log.Info("status server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("status server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
