package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/logger"
	"github.com/shopswift/storefront/services/common/middleware"
)

// Options configure the shared middleware stack.
type Options struct {
	Service        string
	Logger         *zap.Logger
	Origins        []string
	CloudWatch     middleware.MetricsRecorder
	RequestTimeout time.Duration
	// Stop ends the rate limiter sweeper. Nil runs no sweeper.
	Stop <-chan struct{}
}

// NewRouter returns an engine with recovery, request ids, request logging,
// security headers, CORS, rate limiting, metrics, a request timeout and the
// error renderer installed, plus GET /health and GET /metrics.
func NewRouter(o Options) *gin.Engine {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewRouterWithRegistry(o, reg)
}

func NewRouterWithRegistry(o Options, reg *prometheus.Registry) *gin.Engine {
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 30 * time.Second
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		middleware.RequestLogger(o.Logger),
		middleware.SecurityHeaders(),
		middleware.CORS(o.Origins),
		middleware.RateLimitMiddleware(o.Stop),
		middleware.NewHTTPMetrics(reg, o.Service).Middleware(),
		middleware.CloudWatchMetrics(o.CloudWatch, o.Service),
		middleware.Timeout(o.RequestTimeout),
		apperrors.ErrorMiddleware(o.Logger),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": o.Service})
	})
	r.GET("/metrics", middleware.PrometheusHandler(reg))
	return r
}

// Run serves handler on addr until SIGINT or SIGTERM, then drains for up to
// grace.
func Run(addr string, handler http.Handler, log *zap.Logger, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("Server exited cleanly")
	return nil
}
