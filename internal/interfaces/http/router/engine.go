package router

import (
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes caps request bodies on the ops API
const DefaultMaxBodyBytes int64 = 1 << 20

// EngineConfig configures the middleware chain of the ops API engine
type EngineConfig struct {
	Logger       *zap.Logger
	Tracing      middleware.TracingConfig
	Meter        metric.Meter // nil disables HTTP metrics
	MaxBodyBytes int64
}

// NewEngine builds a gin engine with recovery, request logging, tracing,
// metrics and body limiting installed in that order.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	metrics, err := middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		Meter:   cfg.Meter,
		Enabled: cfg.Meter != nil,
	})
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		metrics,
		middleware.BodyLimit(maxBody),
	)
	return engine, nil
}
