package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func tracedRouter(t *testing.T, handler gin.HandlerFunc) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	router := gin.New()
	router.Use(
		logger.GinMiddleware(zap.NewNop()),
		TracingWithConfig(TracingConfig{ServiceName: "test-service", Enabled: true, TracerProvider: tp}),
		TracingAttributeInjector(),
		SpanErrorMarker(),
	)
	router.GET("/api/v1/system/propagation/stats", handler)
	return router, sr
}

func attrValue(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracing_SpanCarriesRequestAndTenant(t *testing.T) {
	router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(http.StatusOK) })
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/propagation/stats?tenant_id="+tenantID.String(), nil)
	req.Header.Set(logger.RequestIDHeader, "req-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	requestID, ok := attrValue(spans[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "req-7", requestID.AsString())
	tenant, ok := attrValue(spans[0], "tenant_id")
	require.True(t, ok)
	assert.Equal(t, tenantID.String(), tenant.AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_InvalidTenantIsNotRecorded(t *testing.T) {
	router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/propagation/stats?tenant_id=not-a-uuid", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	_, ok := attrValue(spans[0], "tenant_id")
	assert.False(t, ok)
	status, ok := attrValue(spans[0], "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusBadRequest), status.AsInt64())
}

func TestSpanErrorMarker_ServerError(t *testing.T) {
	router, sr := tracedRouter(t, func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/propagation/stats", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
