package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/config"
	"github.com/kailas-cloud/playsearch/internal/tracing"
)

func stubTracing(t *testing.T, shutdownErr error) *int {
	t.Helper()
	calls := new(int)
	orig := initTracing
	initTracing = func(tracing.Config) (tracing.Shutdown, error) {
		return func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("tracing shutdown must run with a deadline")
			}
			*calls++
			return shutdownErr
		}, nil
	}
	t.Cleanup(func() { initTracing = orig })
	return calls
}

func TestServe_FlushesTracingWhenWiringFails(t *testing.T) {
	tests := []struct {
		name        string
		shutdownErr error
	}{
		{"clean flush", nil},
		{"flush error is logged only", errors.New("exporter gone")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubTracing(t, tt.shutdownErr)

			// a regular file where the catalog directory should be
			dir := t.TempDir()
			blocker := filepath.Join(dir, "blocker")
			if err := os.WriteFile(blocker, nil, 0o600); err != nil {
				t.Fatal(err)
			}

			cfg := config.Config{
				HTTP:     config.HTTPConfig{Port: 18080},
				Database: config.DatabaseConfig{Addrs: []string{"localhost:6379"}},
				Auth:     config.AuthConfig{JWTSecret: testSecret},
				Catalog:  config.CatalogConfig{Path: filepath.Join(blocker, "catalog.db")},
				Tracing:  config.TracingConfig{Enabled: true},
			}
			cfg.ApplyDefaults()

			err := serve(context.Background(), "test", cfg, zap.NewNop())
			if err == nil {
				t.Fatal("expected wiring error")
			}
			if tt.shutdownErr != nil && errors.Is(err, tt.shutdownErr) {
				t.Errorf("flush error must not replace the wiring error: %v", err)
			}
			if *calls != 1 {
				t.Errorf("tracing shutdown calls = %d, want 1", *calls)
			}
		})
	}
}
