package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusCreated, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			r := gin.New()
			r.Use(GinMiddleware(zap.New(core)))
			r.GET("/applications/:id", func(c *gin.Context) { c.Status(tt.status) })

			serve(r, http.MethodGet, "/applications/42")

			require.Len(t, recorded.All(), 1)
			entry := recorded.All()[0]
			assert.Equal(t, "HTTP request", entry.Message)
			assert.Equal(t, tt.level, entry.Level)
		})
	}
}

func TestGinMiddleware_Fields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/applications/:id/progress", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"percent": 50})
	})

	serve(r, http.MethodGet, "/applications/42/progress?verbose=1")

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/applications/:id/progress", fields["route"])
	assert.Equal(t, "/applications/42/progress", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "verbose=1", fields["query"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
}

func TestGinMiddleware_IncludesCorrelationSetDownstream(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.Use(func(c *gin.Context) {
		ctx := WithRequestID(c.Request.Context(), "req-7")
		ctx = WithActor(ctx, "user-1", "dept-2", "write")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.POST("/applications/:id/decisions", func(c *gin.Context) {
		c.Set("error_code", "MISSING_REQUIREMENTS")
		c.Status(http.StatusUnprocessableEntity)
	})

	serve(r, http.MethodPost, "/applications/42/decisions")

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "dept-2", fields["department_id"])
	assert.Equal(t, "write", fields["role_tier"])
	assert.Equal(t, "MISSING_REQUIREMENTS", fields["error_code"])
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), "req-panic"))
		c.Next()
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	var w *httptest.ResponseRecorder
	assert.NotPanics(t, func() { w = serve(r, http.MethodGet, "/panic") })
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.Len(t, recorded.All(), 1)
	entry := recorded.All()[0]
	assert.Equal(t, "Panic recovered", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
}
