package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/servicecart/pkg/config"
	pkgredis "github.com/angelmondragon/servicecart/pkg/redis"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-ServiceCart-Env") != "test" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReadySkipsUnconfiguredRedis(t *testing.T) {
	var redisClient *pkgredis.Client
	handler := HealthReady(testConfig(), nil, map[string]Pinger{
		"db":    stubPinger{},
		"redis": redisClient,
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"db":"up"`) || strings.Contains(resp.Body.String(), "redis") {
		t.Fatalf("unexpected checks %s", resp.Body.String())
	}
}

func TestHealthReadyReportsFailures(t *testing.T) {
	handler := HealthReady(testConfig(), nil, map[string]Pinger{
		"db": stubPinger{err: errors.New("connection refused")},
	})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"db":"down"`) {
		t.Fatalf("expected db down detail, got %s", resp.Body.String())
	}
}
