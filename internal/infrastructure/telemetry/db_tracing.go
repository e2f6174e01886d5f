package telemetry

import (
	"github.com/erp/records/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBPlugins returns the GORM plugins that emit a span per statement.
// Query variables are never attached to spans.
func DBPlugins(cfg config.TelemetryConfig, dbName string) []gorm.Plugin {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}
	return []gorm.Plugin{
		otelgorm.NewPlugin(
			otelgorm.WithDBName(dbName),
			otelgorm.WithoutQueryVariables(),
		),
	}
}
