package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/afrinict/nbcportal-sub001/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	mw, err := HTTPMetrics(nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(mw)
	r.GET("/test", ok)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/test", nil, nil).Code)
}

func TestHTTPMetrics_RecordsRequests(t *testing.T) {
	mp, reader := setupTestMeter(t)
	mw, err := HTTPMetrics(mp.Meter("http.server"))
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(DepartmentIDKey, "dept-1") }, mw)
	r.GET("/applications/:id", ok)
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	perform(r, http.MethodGet, "/applications/1", nil, nil)
	perform(r, http.MethodGet, "/applications/2", nil, nil)
	perform(r, http.MethodGet, "/missing/3", nil, nil)
	perform(r, http.MethodGet, "/nowhere", nil, nil)

	total := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, isSum := total.Data.(metricdata.Sum[int64])
	require.True(t, isSum)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		status, _ := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
		dept, hasDept := dp.Attributes.Value(telemetry.AttrDepartmentID)
		assert.True(t, hasDept)
		assert.Equal(t, "dept-1", dept.AsString())
		counts[route.AsString()+" "+status.Emit()] += dp.Value
	}
	assert.Equal(t, int64(2), counts["/applications/:id 200"])
	assert.Equal(t, int64(1), counts["/missing/:id 404"])
	assert.Equal(t, int64(1), counts["unmatched 404"])

	duration := findMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, isHist := duration.Data.(metricdata.Histogram[float64])
	require.True(t, isHist)
	var observations uint64
	for _, dp := range hist.DataPoints {
		_, hasStatus := dp.Attributes.Value(telemetry.AttrHTTPStatusCode)
		assert.False(t, hasStatus, "duration is labelled by method and route only")
		observations += dp.Count
	}
	assert.Equal(t, uint64(4), observations)

	active := findMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, active)
	gauge := active.Data.(metricdata.Sum[int64])
	for _, dp := range gauge.DataPoints {
		assert.Equal(t, int64(0), dp.Value)
	}
}
