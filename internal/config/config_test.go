package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORKFLOW_COMPANY_FALLBACK", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FallbackSpecificThenDefault, cfg.Workflow.CompanyFallback)
	assert.Equal(t, 20, cfg.Workflow.DefaultPageSize)
	assert.Equal(t, 100, cfg.Workflow.MaxPageSize)
	assert.False(t, cfg.Workflow.FinishRequiresAssistsClosed)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_COMPANY_FALLBACK", "default_only")
	t.Setenv("WORKFLOW_FINISH_REQUIRES_ASSISTS_CLOSED", "true")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, FallbackDefaultOnly, cfg.Workflow.CompanyFallback)
	assert.True(t, cfg.Workflow.FinishRequiresAssistsClosed)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("WORKFLOW_REPORT_TIMEZONE: Asia/Shanghai\nREDIS_LEVEL_CACHE_TTL_SECONDS: 60\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	loc, err := cfg.Workflow.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
	assert.Equal(t, int64(60), int64(cfg.Redis.LevelCacheTTL().Seconds()))
}

func TestValidateRejectsUnknownFallback(t *testing.T) {
	cfg := Default()
	cfg.Workflow.CompanyFallback = "company_first"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	require.NoError(t, cfg.Validate())
}
