package stockpile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValerySidorin/stockpile/pkg/record"
	"github.com/grafana/dskit/flagext"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	cfg := Config{}
	flagext.DefaultValues(&cfg)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name: "unknown store",
			mutate: func(cfg *Config) {
				cfg.Store.Store = "mongo"
			},
			wantErr: `unknown store "mongo"`,
		},
		{
			name: "pg without conn",
			mutate: func(cfg *Config) {
				cfg.Store.Store = "pg"
			},
			wantErr: "pg store needs a connection string",
		},
		{
			name: "bad pool",
			mutate: func(cfg *Config) {
				cfg.WorkerPool.MaxSize = 1
			},
			wantErr: "invalid worker pool config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, All, cfg.Target)
	assert.Equal(t, "memory", cfg.Store.Store)
	assert.Equal(t, 10, cfg.WorkerPool.CoreSize)
	assert.Equal(t, 20, cfg.WorkerPool.MaxSize)
	assert.Equal(t, 100, cfg.WorkerPool.QueueCapacity)
	assert.Equal(t, "record-worker", cfg.WorkerPool.NamePrefix)
	assert.Equal(t, time.Minute, cfg.WorkerPool.KeepAlive)
}

func TestAllModules(t *testing.T) {
	seedFile := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`[
		{"name": "a", "status": "ADDED"},
		{"name": "b", "status": "ADDED"},
		{"name": "c", "status": "UPDATED"}
	]`), 0o600))

	cfg := defaultConfig()
	cfg.Server.HTTPListenPort = 0
	cfg.Server.GRPCListenPort = 0
	cfg.Seed.File = seedFile

	s, err := New(cfg, prometheus.NewRegistry())
	require.NoError(t, err)

	serviceMap, err := s.ModuleManager.InitModuleServices(All)
	require.NoError(t, err)

	servs := make([]services.Service, 0, len(serviceMap))
	for _, serv := range serviceMap {
		servs = append(servs, serv)
	}
	sm, err := services.NewManager(servs...)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sm.StartAsync(ctx))
	require.NoError(t, sm.AwaitHealthy(ctx))
	defer func() {
		sm.StopAsync()
		require.NoError(t, sm.AwaitStopped(context.Background()))
	}()

	resp := httptest.NewRecorder()
	s.Server.HTTP.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/items/process", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	recs := []*record.Record{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &recs))
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.Equal(t, record.PROCESSED, rec.Status)
	}
}
