package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-calendar-api/internal/service"
)

func TestMetricsHandlerHealth(t *testing.T) {
	r := newRouter()
	r.GET("/health", NewMetricsHandler(nil, nil, nil).Health)

	rec := perform(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	r := newRouter()
	r.GET("/ready", NewMetricsHandler(nil, map[string]Pinger{"postgres": healthy}, nil).Ready)
	rec := perform(t, r, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"postgres":"ok"}`, string(decodeEnvelope(t, rec).Data))

	r = newRouter()
	r.GET("/ready", NewMetricsHandler(nil, map[string]Pinger{"redis": broken}, nil).Ready)
	rec = perform(t, r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveExpansion(0, 3, 0, 0)

	r := newRouter()
	r.GET("/metrics", NewMetricsHandler(metrics, nil, nil).Prometheus)
	rec := perform(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "calendar_expanded_occurrences")
}
