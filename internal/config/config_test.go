package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DEDUP_TTL", "RETENTION_DAYS", "EXPORT_LINK_TTL", "OTEL_EXPORTER_OTLP_ENDPOINT", "TZ_NAME"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.DedupTTL)
	assert.Equal(t, 38, cfg.RetentionDays)
	assert.Equal(t, 600*time.Second, cfg.ExportLinkTTL)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Equal(t, "Asia/Shanghai", cfg.Timezone)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEDUP_TTL", "2m")
	t.Setenv("RETENTION_DAYS", "not-a-number")
	t.Setenv("USE_SUPABASE", "false")

	cfg := config.Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.DedupTTL)
	assert.Equal(t, 38, cfg.RetentionDays)
	assert.False(t, cfg.UseSupabase)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEDGER_TEST_A=from-file\nLEDGER_TEST_B=\"quoted value\"\n"), 0o600))

	t.Setenv("LEDGER_TEST_A", "from-env")
	t.Setenv("LEDGER_TEST_B", "")
	os.Unsetenv("LEDGER_TEST_B")

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("LEDGER_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("LEDGER_TEST_B"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
