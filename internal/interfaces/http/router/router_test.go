package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/afrinict/nbcportal-sub001/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func pong(c *gin.Context) { c.String(http.StatusOK, "pong") }

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Empty(t, r.public)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	r.Register(RegistrarFunc(func(rg *gin.RouterGroup) { rg.GET("/ping", pong) }))
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/ping", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/ping", nil).Code)
}

func TestRouterProtection(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}

	NewRouter(engine, WithProtection(deny)).
		Public(RegistrarFunc(func(rg *gin.RouterGroup) { rg.GET("/health", pong) })).
		Register(RegistrarFunc(func(rg *gin.RouterGroup) { rg.GET("/applications", pong) })).
		Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/applications", nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/applications",
		map[string]string{"Authorization": "Bearer x"}).Code)
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(EngineOptions{
		Logger:      zap.NewNop(),
		ServiceName: "nbc-licensing-test",
		Meter:       sdkmetric.NewMeterProvider().Meter("test"),
		CORS: middleware.CORSConfig{
			AllowOrigins: []string{"https://portal.example"},
			AllowMethods: []string{"GET"},
		},
		MaxBodySize: 16,
	})
	require.NoError(t, err)

	engine.GET("/ping", pong)
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	engine.GET("/panic", func(*gin.Context) { panic("boom") })

	w := serve(engine, http.MethodGet, "/ping", map[string]string{"Origin": "https://portal.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "https://portal.example", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusInternalServerError, serve(engine, http.MethodGet, "/panic", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"k":"`+strings.Repeat("a", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
