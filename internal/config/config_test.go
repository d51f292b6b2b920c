package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sessamekesh/turnlink/pkg/client"
	"github.com/sessamekesh/turnlink/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func writeFile(t *testing.T, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadParams{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, TransportKind_Websocket, cfg.Server.Transport)
	assert.Equal(t, client.DefaultHeartbeatInterval, cfg.Timing.HeartbeatInterval)
	assert.Equal(t, client.DefaultMaxReconnectAttempts, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 1.0, cfg.Reconnect.Backoff)
	assert.Equal(t, 50*time.Millisecond, cfg.Timing.TickInterval)
	assert.False(t, cfg.Diagnostics.Enabled)
}

func TestLoad_YamlFile(t *testing.T) {
	path := writeFile(t, "turnlink.yaml", `
server:
  address: play.example.com
  port: 4433
  transport: webtransport
  path: /game
player:
  display_name: Ada
  credential: s3cret
timing:
  heartbeat_interval: 250ms
reconnect:
  max_attempts: 8
  backoff: 2
  max_delay: 20s
diagnostics:
  enabled: true
  listen_address: 127.0.0.1:9999
`)

	cfg, err := Load(LoadParams{ConfigPath: path, EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "play.example.com", cfg.Server.Address)
	assert.Equal(t, 4433, cfg.Server.Port)
	assert.Equal(t, TransportKind_Webtransport, cfg.Server.Transport)
	assert.Equal(t, "Ada", cfg.Player.DisplayName)
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.HeartbeatInterval)
	assert.Equal(t, 8, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Reconnect.Backoff)
	assert.Equal(t, 20*time.Second, cfg.Reconnect.MaxDelay)
	assert.True(t, cfg.Diagnostics.Enabled)

	// Unset keys keep their defaults.
	assert.Equal(t, client.DefaultAuthTimeout, cfg.Timing.AuthTimeout)

	_, isWebtransport := cfg.Transport(zaptest.NewLogger(t)).(*transport.WebtransportTransport)
	assert.True(t, isWebtransport)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "turnlink.yaml", "server:\n  port: 4000\n")
	t.Setenv("TURNLINK_SERVER_PORT", "5000")
	t.Setenv("TURNLINK_PLAYER_CREDENTIAL", "from-env")

	cfg, err := Load(LoadParams{ConfigPath: path, EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Player.Credential)
}

func TestLoad_DotEnvFile(t *testing.T) {
	const key = "TURNLINK_PLAYER_PLATFORM"
	_, alreadySet := os.LookupEnv(key)
	if alreadySet {
		t.Skipf("%s is set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	envFile := writeFile(t, ".env", key+"=steamdeck\n")
	cfg, err := Load(LoadParams{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "steamdeck", cfg.Player.Platform)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(LoadParams{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"), EnvFile: noEnvFile(t)})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load(LoadParams{EnvFile: noEnvFile(t)})
		require.NoError(t, err)
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }},
		{"zero tick", func(c *Config) { c.Timing.TickInterval = 0 }},
		{"shrinking backoff", func(c *Config) { c.Reconnect.Backoff = 0.5 }},
		{"diagnostics without address", func(c *Config) {
			c.Diagnostics.Enabled = true
			c.Diagnostics.ListenAddress = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ClientParams(t *testing.T) {
	cfg, err := Load(LoadParams{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	cfg.Player.Id = "p1"

	tr := cfg.Transport(zaptest.NewLogger(t))
	_, isWebsocket := tr.(*transport.WebsocketTransport)
	assert.True(t, isWebsocket)

	params := cfg.ClientParams(tr, nil, zaptest.NewLogger(t))
	assert.Same(t, tr, params.Transport)
	assert.Equal(t, "localhost", params.Address)
	assert.Equal(t, "p1", params.PlayerId)
	assert.Equal(t, cfg.Reconnect.Backoff, params.ReconnectBackoff)

	c, err := client.CreateClient(params)
	require.NoError(t, err)
	assert.Equal(t, "p1", c.PlayerId())
}
