package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-missions/internal/application"
	"drone-missions/internal/config"
	"drone-missions/internal/domain"
	"drone-missions/internal/infrastructure/storage"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports/api"
)

func TestOpenKeyValueStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"memory", config.StorageConfig{Type: "memory"}},
		{"sqlite", config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "missions.db")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := openKeyValueStore(ctx, tt.cfg)
			require.NoError(t, err)
			defer kv.Close()

			require.NoError(t, kv.Set(ctx, "k", []byte("v")))
			got, found, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte("v"), got)
		})
	}

	_, err := openKeyValueStore(ctx, config.StorageConfig{Type: "floppy"})
	assert.Error(t, err)
}

func TestMissionsSurviveRestartOnSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "missions.db")}}

	kv, err := openKeyValueStore(ctx, cfg)
	require.NoError(t, err)
	store := application.NewMissionStore(kv)
	require.NoError(t, store.Load(ctx))
	created, err := store.Create(ctx, "Alpha", []domain.Coordinate{{Latitude: 55.75, Longitude: 37.62}, {Latitude: 55.1234567, Longitude: 37.7654321}})
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv, err = openKeyValueStore(ctx, cfg)
	require.NoError(t, err)
	defer kv.Close()
	restored := application.NewMissionStore(kv)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, []domain.Mission{created}, restored.List())
}

func TestNewRouter(t *testing.T) {
	metrics, err := observability.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	store := application.NewMissionStore(storage.NewMemoryStore(), application.WithStoreMetrics(metrics))

	router := newRouter(zerolog.Nop(), []string{"http://map.example"}, metrics, api.NewMissionHandler(store))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "missions_stored")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/missions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/missions", nil)
	req.Header.Set("Origin", "http://map.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "http://map.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
