package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	previous := otel.GetTracerProvider()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(previous)
	})
	return sr
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func tracedRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Tracing("nbc-test", true), func(c *gin.Context) {
		c.Set(UserIDKey, "user-1")
		c.Set(DepartmentIDKey, "dept-1")
	}, SpanAttributes())
	r.GET("/applications/:id", handler)
	return r
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(Tracing("nbc-test", false))
	r.GET("/test", func(c *gin.Context) {
		assert.False(t, trace.SpanFromContext(c.Request.Context()).SpanContext().IsValid())
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/test", nil, nil)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanPerRequestWithCallerAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	w := perform(tracedRouter(ok), http.MethodGet, "/applications/42", nil, map[string]string{RequestIDHeader: "req-7"})
	require.Equal(t, http.StatusOK, w.Code)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Contains(t, span.Name(), "/applications/:id")

	for key, want := range map[string]string{"request_id": "req-7", "user_id": "user-1", "department_id": "dept-1"} {
		v, found := spanAttr(span, key)
		assert.True(t, found, key)
		assert.Equal(t, want, v.AsString(), key)
	}
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanAttributes_ServerErrorMarksSpan(t *testing.T) {
	sr := setupTestTracer(t)

	r := tracedRouter(func(c *gin.Context) {
		abortWithError(c, http.StatusServiceUnavailable, "ERR_STORAGE_UNAVAILABLE", "down")
	})
	perform(r, http.MethodGet, "/applications/1", nil, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	v, found := spanAttr(spans[0], "error_code")
	assert.True(t, found)
	assert.Equal(t, "ERR_STORAGE_UNAVAILABLE", v.AsString())
}

func TestSpanAttributes_ClientErrorKeepsStatus(t *testing.T) {
	sr := setupTestTracer(t)

	r := tracedRouter(func(c *gin.Context) {
		abortWithError(c, http.StatusForbidden, "ERR_PERMISSION_DENIED", "no")
	})
	perform(r, http.MethodGet, "/applications/1", nil, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	_, found := spanAttr(spans[0], "error_code")
	assert.True(t, found)
}

func TestSpanAttributes_NoSpan(t *testing.T) {
	r := gin.New()
	r.Use(SpanAttributes())
	r.GET("/test", ok)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/test", nil, nil).Code)
}
