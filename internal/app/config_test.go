package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GSTR1_EXPORT_DIR", "/tmp/exports")
	t.Setenv("GSTR1_EXPORT_COMPANIES", "Acme India,Beta Traders")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.GSTR1CacheTTL)
	require.Equal(t, "/tmp/exports", cfg.GSTR1ExportDir)
	require.Equal(t, []string{"Acme India", "Beta Traders"}, cfg.GSTR1ExportCompanies)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("GSTR1_CACHE_TTL", "0s")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsEmptyExportDir(t *testing.T) {
	t.Setenv("GSTR1_EXPORT_DIR", "")
	_, err := LoadConfig()
	require.Error(t, err)
}
