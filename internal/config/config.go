// Package config loads turnlink settings from an optional YAML file, an
// optional .env file and TURNLINK_ environment variables, in increasing order
// of precedence.
package config

import (
	"crypto/tls"
	goerrs "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sessamekesh/turnlink/internal"
	"github.com/sessamekesh/turnlink/pkg/client"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/metrics"
	"github.com/sessamekesh/turnlink/pkg/quality"
	"github.com/sessamekesh/turnlink/pkg/sequencer"
	"github.com/sessamekesh/turnlink/pkg/transport"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	EnvPrefix         = "TURNLINK"
	DefaultConfigName = "turnlink"

	TransportKind_Websocket    = "websocket"
	TransportKind_Webtransport = "webtransport"
)

type ServerConfig struct {
	Address   string `mapstructure:"address"`
	Port      int    `mapstructure:"port"`
	Transport string `mapstructure:"transport"`
	Path      string `mapstructure:"path"`
	// Secure selects wss for websocket. WebTransport is always TLS.
	Secure             bool `mapstructure:"secure"`
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

type PlayerConfig struct {
	Id            string `mapstructure:"id"`
	DisplayName   string `mapstructure:"display_name"`
	Credential    string `mapstructure:"credential"`
	ClientVersion string `mapstructure:"client_version"`
	Platform      string `mapstructure:"platform"`
}

type TimingConfig struct {
	TickInterval          time.Duration `mapstructure:"tick_interval"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	AuthTimeout           time.Duration `mapstructure:"auth_timeout"`
	HeartbeatInterval     time.Duration `mapstructure:"heartbeat_interval"`
	PingTimeout           time.Duration `mapstructure:"ping_timeout"`
	QueueProgressInterval time.Duration `mapstructure:"queue_progress_interval"`
}

type ReconnectConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     float64       `mapstructure:"backoff"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// CompressionThreshold follows the serializer: negative disables compression.
type SyncConfig struct {
	ResyncCooldown       time.Duration `mapstructure:"resync_cooldown"`
	MaxPendingOrdered    int           `mapstructure:"max_pending_ordered"`
	CompressionThreshold int           `mapstructure:"compression_threshold"`
}

type QualityConfig struct {
	Samples             int `mapstructure:"samples"`
	MaxOutstandingPings int `mapstructure:"max_outstanding_pings"`
}

type DiagnosticsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Player      PlayerConfig      `mapstructure:"player"`
	Timing      TimingConfig      `mapstructure:"timing"`
	Reconnect   ReconnectConfig   `mapstructure:"reconnect"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Quality     QualityConfig     `mapstructure:"quality"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

type LoadParams struct {
	// ConfigPath names a YAML file. When empty, turnlink.yaml is looked up in
	// the working directory and ./config, and its absence is not an error.
	ConfigPath string
	// EnvFile is loaded into the process environment before reading
	// variables. Defaults to ".env"; a missing file is ignored.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.transport", TransportKind_Websocket)
	v.SetDefault("server.path", "/ws")
	v.SetDefault("server.secure", false)
	v.SetDefault("server.insecure_skip_verify", false)

	v.SetDefault("player.id", "")
	v.SetDefault("player.display_name", "")
	v.SetDefault("player.credential", "")
	v.SetDefault("player.client_version", "")
	v.SetDefault("player.platform", "")

	v.SetDefault("timing.tick_interval", 50*time.Millisecond)
	v.SetDefault("timing.connect_timeout", client.DefaultConnectTimeout)
	v.SetDefault("timing.auth_timeout", client.DefaultAuthTimeout)
	v.SetDefault("timing.heartbeat_interval", client.DefaultHeartbeatInterval)
	v.SetDefault("timing.ping_timeout", client.DefaultPingTimeout)
	v.SetDefault("timing.queue_progress_interval", client.DefaultQueueProgressInterval)

	v.SetDefault("reconnect.delay", client.DefaultReconnectDelay)
	v.SetDefault("reconnect.max_attempts", client.DefaultMaxReconnectAttempts)
	v.SetDefault("reconnect.backoff", 1.0)
	v.SetDefault("reconnect.max_delay", client.DefaultMaxReconnectDelay)

	v.SetDefault("sync.resync_cooldown", time.Duration(0))
	v.SetDefault("sync.max_pending_ordered", sequencer.DefaultMaxPendingOrdered)
	v.SetDefault("sync.compression_threshold", message.DefaultCompressionThreshold)

	v.SetDefault("quality.samples", quality.DefaultCapacity)
	v.SetDefault("quality.max_outstanding_pings", internal.DefaultMaxOutstandingPings)

	v.SetDefault("diagnostics.enabled", false)
	v.SetDefault("diagnostics.listen_address", "127.0.0.1:9464")
}

func Load(params LoadParams) (*Config, error) {
	envFile := params.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if params.ConfigPath != "" {
		v.SetConfigFile(params.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !goerrs.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Server.Transport {
	case TransportKind_Websocket, TransportKind_Webtransport:
	default:
		return fmt.Errorf("server.transport %q is not one of %q, %q", c.Server.Transport, TransportKind_Websocket, TransportKind_Webtransport)
	}
	if c.Timing.TickInterval <= 0 {
		return fmt.Errorf("timing.tick_interval must be positive")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.Backoff < 1 {
		return fmt.Errorf("reconnect.backoff %.2f must be at least 1", c.Reconnect.Backoff)
	}
	if c.Diagnostics.Enabled && c.Diagnostics.ListenAddress == "" {
		return fmt.Errorf("diagnostics.listen_address must be set when diagnostics are enabled")
	}
	return nil
}

// Transport builds the transport named by server.transport.
func (c *Config) Transport(logger *zap.Logger) transport.Transport {
	if c.Server.Transport == TransportKind_Webtransport {
		return transport.CreateWebtransportTransport(transport.WebtransportTransportParams{
			Path: c.Server.Path,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: c.Server.InsecureSkipVerify,
			},
			Logger: logger,
		})
	}

	scheme := "ws"
	if c.Server.Secure {
		scheme = "wss"
	}
	return transport.CreateWebsocketTransport(transport.WebsocketTransportParams{
		Scheme: scheme,
		Path:   c.Server.Path,
		Logger: logger,
	})
}

func (c *Config) ClientParams(tr transport.Transport, m *metrics.Metrics, logger *zap.Logger) client.ClientParams {
	return client.ClientParams{
		Transport:     tr,
		Address:       c.Server.Address,
		Port:          c.Server.Port,
		PlayerId:      c.Player.Id,
		DisplayName:   c.Player.DisplayName,
		Credential:    c.Player.Credential,
		ClientVersion: c.Player.ClientVersion,
		Platform:      c.Player.Platform,

		ConnectTimeout:        c.Timing.ConnectTimeout,
		AuthTimeout:           c.Timing.AuthTimeout,
		HeartbeatInterval:     c.Timing.HeartbeatInterval,
		PingTimeout:           c.Timing.PingTimeout,
		QueueProgressInterval: c.Timing.QueueProgressInterval,

		ReconnectDelay:       c.Reconnect.Delay,
		MaxReconnectAttempts: c.Reconnect.MaxAttempts,
		ReconnectBackoff:     c.Reconnect.Backoff,
		MaxReconnectDelay:    c.Reconnect.MaxDelay,

		ResyncCooldown:       c.Sync.ResyncCooldown,
		MaxPendingOrdered:    c.Sync.MaxPendingOrdered,
		CompressionThreshold: c.Sync.CompressionThreshold,
		QualityCapacity:      c.Quality.Samples,
		MaxOutstandingPings:  c.Quality.MaxOutstandingPings,

		Metrics: m,
		Logger:  logger,
	}
}
