package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, loader *ConfigLoader, cfg *ServerCmdConfig, configPath string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	require.NoError(t, loader.RegisterFlags(cmd.Flags(), "", cfg))
	if configPath != "" {
		require.NoError(t, cmd.Flags().Set("config", configPath))
	}
	return cmd
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigLoader_LoadDefaults(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.toml", ""))

	require.NoError(t, loader.Load(cmd, &cfg))

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.GracefulShutdown)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, true, cfg.DB.PrepareStmt)
	assert.Equal(t, 25, cfg.DB.Pool.MaxOpenConnections)
	assert.Equal(t, 10*time.Minute, cfg.DB.Pool.MaxLifetime)
	assert.Equal(t, 10485760, cfg.Cache.MaxSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, true, cfg.Queue.Enable)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, 100, cfg.Sources.Limit)
	assert.Equal(t, "https://ctftime.org/api/v1/events/", cfg.Sources.CTFTime.URL)
	assert.Equal(t, 365*24*time.Hour, cfg.Sources.CTFTime.Window)
	assert.Equal(t, []string{"https://www.usenix.org/rss.xml"}, cfg.Sources.RSS.URLs)
	assert.Equal(t, "https://api.telegram.org", cfg.Notify.APIURL)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Empty(t, cfg.Notify.Recipients)
}

func TestConfigLoader_LoadFromTOML(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	path := writeConfig(t, "config.toml", `
[server]
port = 9000
graceful-shutdown = "20s"

[log]
level = "debug"

[sources.rss]
urls = ["https://example.org/a.xml", "https://example.org/b.xml"]

[notify]
recipients = ["1001", "1002"]
`)
	cmd := newTestCommand(t, loader, &cfg, path)

	require.NoError(t, loader.Load(cmd, &cfg))

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.GracefulShutdown)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://example.org/a.xml", "https://example.org/b.xml"}, cfg.Sources.RSS.URLs)
	assert.Equal(t, []string{"1001", "1002"}, cfg.Notify.Recipients)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestConfigLoader_LoadFromYAML(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	path := writeConfig(t, "config.yaml", `
sources:
  timeout: "5s"
  ctftime:
    window: "2w"
    enable: false
`)
	cmd := newTestCommand(t, loader, &cfg, path)

	require.NoError(t, loader.Load(cmd, &cfg))

	assert.Equal(t, 5*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, 14*24*time.Hour, cfg.Sources.CTFTime.Window)
	assert.False(t, cfg.Sources.CTFTime.Enable)
	assert.True(t, cfg.Sources.RSS.Enable)
}

func TestConfigLoader_Precedence(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	path := writeConfig(t, "config.toml", `
[server]
port = 9000

[log]
level = "debug"
`)
	cmd := newTestCommand(t, loader, &cfg, path)

	t.Setenv("CTFWATCH_SERVER_PORT", "9100")
	t.Setenv("CTFWATCH_LOG_LEVEL", "error")
	t.Setenv("CTFWATCH_NOTIFY_RECIPIENTS", "11,22")
	require.NoError(t, cmd.Flags().Set("log-level", "warn"))

	require.NoError(t, loader.Load(cmd, &cfg))

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"11", "22"}, cfg.Notify.Recipients)
}

func TestConfigLoader_RequiredFields(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.toml", ""))

	require.NoError(t, loader.Load(cmd, &cfg))

	err := loader.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required configuration values not set")
	assert.Contains(t, err.Error(), "db-data-source")
}

func TestConfigLoader_ValidConfig(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.toml", ""))
	require.NoError(t, cmd.Flags().Set("db-data-source", "postgres://u:p@localhost:5432/ctfwatch"))

	require.NoError(t, loader.Load(cmd, &cfg))
	assert.NoError(t, loader.Validate())
}

func TestConfigLoader_InvalidValue(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.toml", ""))
	require.NoError(t, cmd.Flags().Set("db-data-source", "postgres://localhost/ctfwatch"))
	require.NoError(t, cmd.Flags().Set("log-level", "verbose"))

	require.NoError(t, loader.Load(cmd, &cfg))
	err := loader.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-level")
}

func TestConfigLoader_ZeroNotifyTimeout(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.toml", ""))
	require.NoError(t, cmd.Flags().Set("db-data-source", "postgres://localhost/ctfwatch"))
	require.NoError(t, cmd.Flags().Set("notify-timeout", "0s"))

	require.NoError(t, loader.Load(cmd, &cfg))
	err := loader.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify-timeout")
}

func TestConfigLoader_FlagDefaults(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, "")

	portFlag := cmd.Flags().Lookup("server-port")
	require.NotNil(t, portFlag)
	assert.Equal(t, "8080", portFlag.DefValue)

	windowFlag := cmd.Flags().Lookup("sources-ctftime-window")
	require.NotNil(t, windowFlag)
	assert.Equal(t, "1y", windowFlag.DefValue)

	limitFlag := cmd.Flags().Lookup("sources-limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "100", limitFlag.DefValue)
}

func TestConfigLoader_UnsupportedFileType(t *testing.T) {
	loader := NewConfigLoader()
	var cfg ServerCmdConfig
	cmd := newTestCommand(t, loader, &cfg, writeConfig(t, "config.ini", "port=1"))

	err := loader.Load(cmd, &cfg)
	assert.Error(t, err)
}
