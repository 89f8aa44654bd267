package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FEATURE_SERVICE_URL", "https://services.arcgis.com/abc/arcgis/rest/services/GooseResight/FeatureServer")
	t.Setenv("START_DATE", "2025-01-01")
	t.Setenv("END_DATE", "2025-02-01")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.EventsLayer)
	assert.Equal(t, 1, cfg.PointsLayer)
	assert.Equal(t, 2, cfg.BandsLayer)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "exports", cfg.OutputDir)
	assert.Equal(t, "America/Los_Angeles", cfg.Timezone)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.PushgatewayURL)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AGOL_TOKEN", "secret")
	t.Setenv("POINTS_LAYER", "5")
	t.Setenv("HTTP_TIMEOUT", "10s")
	t.Setenv("OUTPUT_DIR", "/data/exports")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 5, cfg.PointsLayer)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/data/exports", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing service URL", map[string]string{"FEATURE_SERVICE_URL": ""}},
		{"bad date", map[string]string{"START_DATE": "Jan 1 2025"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	t.Run("local midnights, start before end", func(t *testing.T) {
		cfg := &Config{StartDate: "2025-01-01", EndDate: "2025-02-01"}
		start, end, err := cfg.Window(loc)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, loc), end)
	})

	t.Run("empty window rejected", func(t *testing.T) {
		cfg := &Config{StartDate: "2025-02-01", EndDate: "2025-02-01"}
		_, _, err := cfg.Window(loc)
		require.Error(t, err)
	})
}
