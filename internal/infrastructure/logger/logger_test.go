package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("tees extra cores", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"}, core)
		require.NoError(t, err)

		l.Info("hello")
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "records.log")
		l, err := New(&Config{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		l.Info("to file")
		require.NoError(t, l.Sync())
	})

	t.Run("fails on unwritable file", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestContextBinding(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	tenantID := uuid.New()
	userID := uuid.New()
	jobID := uuid.New()

	ctx, _ := WithTenantID(context.Background(), base, tenantID)
	ctx, _ = WithUserID(ctx, FromContext(ctx), &userID)
	ctx, _ = WithJob(ctx, FromContext(ctx), jobID, 2)

	L(ctx).Info("processing")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.Equal(t, jobID.String(), fields["job_id"])
	assert.EqualValues(t, 2, fields["attempt"])

	got, ok := TenantIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, tenantID, got)
	gotJob, ok := JobIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, jobID, gotJob)
}

func TestWithUserID_Nil(t *testing.T) {
	ctx, l := WithUserID(context.Background(), zap.NewNop(), nil)
	assert.NotNil(t, l)
	_, ok := UserIDFromContext(ctx)
	assert.False(t, ok)
}

func TestFromContext_DefaultsToNop(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	L(context.Background()).Info("dropped")
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, 100*time.Millisecond)

	tenantID := uuid.New()
	ctx, _ := WithTenantID(context.Background(), zap.NewNop(), tenantID)
	sql := func() (string, int64) { return "UPDATE accounts SET name = 'x'", 1 }

	t.Run("fast query below warn is dropped", func(t *testing.T) {
		gl.Trace(ctx, time.Now(), sql, nil)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow query warns with tenant", func(t *testing.T) {
		gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
		require.Equal(t, 1, recorded.Len())
		entry := recorded.TakeAll()[0]
		assert.Equal(t, "slow sql", entry.Message)
		assert.Equal(t, tenantID.String(), entry.ContextMap()["tenant_id"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("log mode returns copy", func(t *testing.T) {
		silent := gl.LogMode(gormlogger.Silent).(*GormLogger)
		assert.Equal(t, gormlogger.Silent, silent.logLevel)
		assert.Equal(t, gormlogger.Warn, gl.logLevel)
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	r := gin.New()
	r.Use(GinMiddleware(base), Recovery(base))
	r.GET("/ok", func(c *gin.Context) {
		FromContext(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	t.Run("propagates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
		entries := recorded.TakeAll()
		require.Len(t, entries, 2)
		assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	})

	t.Run("recovers panics", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotZero(t, recorded.FilterMessage("panic recovered").Len())
	})
}
