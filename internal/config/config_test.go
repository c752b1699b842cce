package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/decisionmaker/internal/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decisionmaker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvPrefix+"_CONFIG", "")
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "decisionmaker.db", c.Database.Path)
	assert.Equal(t, "", c.Identity.Addr)
	assert.Equal(t, "local", c.Identity.LocalUser)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, gate.DefaultGateConfig(), c.GateConfig())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/dm.db
identity:
  addr: 127.0.0.1:9000
gate:
  tolerance: 0.000001
  reject_negative: true
log:
  level: debug
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dm.db", c.Database.Path)
	assert.Equal(t, "127.0.0.1:9000", c.Identity.Addr)
	assert.Equal(t, "debug", c.Log.Level)

	gc := c.GateConfig()
	assert.InDelta(t, 1e-6, gc.Tolerance, 1e-12)
	assert.True(t, gc.RejectNegative)
	assert.False(t, gc.RejectAboveOne)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv("DECISIONMAKER_LOG_LEVEL", "warn")
	t.Setenv("DECISIONMAKER_GATE_REJECT_ABOVE_ONE", "true")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.Log.Level)
	assert.True(t, c.Gate.RejectAboveOne)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "database:\n  path: from-env.db\n")
	t.Setenv(EnvPrefix+"_CONFIG", path)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", c.Database.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_NegativeToleranceRejected(t *testing.T) {
	path := writeConfig(t, "gate:\n  tolerance: -0.5\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate.tolerance")
}

func TestValidate_EmptyDatabasePath(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
}
