package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sessamekesh/turnlink/internal/config"
	"github.com/sessamekesh/turnlink/internal/diag"
	"github.com/sessamekesh/turnlink/pkg/client"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func connectCmd(configPath *string) *cobra.Command {
	var (
		joinLobby string
		queueMode string
		duration  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and keep the session alive",
		Long: `Connect to the configured server and run the client tick loop until
interrupted. Optionally joins a lobby or the matchmaking queue once connected,
and serves /metrics and /status when diagnostics are enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadParams{ConfigPath: *configPath})
			if err != nil {
				return err
			}

			logger := createLogger()
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			return runClient(ctx, cfg, runOptions{
				joinLobby: joinLobby,
				queueMode: queueMode,
			}, logger)
		},
	}

	cmd.Flags().StringVar(&joinLobby, "join", "", "Lobby id to join once connected")
	cmd.Flags().StringVar(&queueMode, "queue", "", "Matchmaking mode to queue for once connected")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")

	return cmd
}

type runOptions struct {
	joinLobby string
	queueMode string
}

func runClient(ctx context.Context, cfg *config.Config, opts runOptions, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	m := metrics.CreateMetrics(metrics.MetricsParams{Registry: registry})

	c, err := client.CreateClient(cfg.ClientParams(cfg.Transport(logger), m, logger))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Diagnostics.Enabled {
		server := diag.CreateDiagServer(diag.DiagServerParams{
			ListenAddress: cfg.Diagnostics.ListenAddress,
			Status:        c,
			Gatherer:      registry,
			Logger:        logger,
		})
		g.Go(func() error {
			return server.Start(ctx)
		})
	}

	g.Go(func() error {
		return tickLoop(ctx, c, cfg.Timing.TickInterval, opts, logger)
	})

	return g.Wait()
}

// tickLoop owns the client. Every client call happens on this goroutine.
func tickLoop(ctx context.Context, c *client.Client, interval time.Duration, opts runOptions, logger *zap.Logger) error {
	var fatal error
	c.Subscribe(func(e client.Event) {
		logEvent(logger, e)

		switch ev := e.(type) {
		case client.Connected:
			if ev.Reconnected {
				return
			}
			if opts.joinLobby != "" {
				if err := c.JoinLobby(opts.joinLobby, ""); err != nil {
					logger.Warn("Could not join lobby", zap.Error(err))
				}
			} else if opts.queueMode != "" {
				if err := c.EnterQueue(message.EnterQueue{Mode: opts.queueMode}); err != nil {
					logger.Warn("Could not enter queue", zap.Error(err))
				}
			}
		case client.MatchFound:
			if err := c.AcceptMatch(); err != nil {
				logger.Warn("Could not accept match", zap.Error(err))
			}
		case client.ConnectionFailed:
			fatal = ev.Err
		case client.AuthFailed:
			fatal = ev.Err
		case client.Disconnected:
			if ev.ByServer {
				fatal = fmt.Errorf("server closed the session: %s", ev.Reason)
			}
		}
	})

	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping client")
			return nil
		case <-ticker.C:
			c.Update()
			if fatal != nil {
				return fatal
			}
		}
	}
}

func logEvent(logger *zap.Logger, e client.Event) {
	switch ev := e.(type) {
	case client.StateChanged:
		logger.Info("State changed", zap.Stringer("from", ev.From), zap.Stringer("to", ev.To))
	case client.Reconnecting:
		logger.Warn("Reconnecting",
			zap.Int("attempt", ev.Attempt),
			zap.Int("maxAttempts", ev.MaxAttempts),
			zap.Duration("delay", ev.Delay),
			zap.Error(ev.Cause))
	case client.LobbyUpdated:
		logger.Info("Lobby updated", zap.String("lobbyId", ev.Lobby.LobbyId), zap.Int("players", len(ev.Lobby.Players)))
	case client.TurnStarted:
		logger.Info("Turn started", zap.Uint32("turn", ev.Turn), zap.Stringer("phase", ev.Phase), zap.Bool("myTurn", ev.IsMyTurn))
	case client.GameEnded:
		logger.Info("Game ended", zap.String("winnerId", ev.WinnerId), zap.String("reason", ev.Reason))
	case client.DesyncDetected:
		logger.Warn("Desync detected", zap.Error(ev.Err))
	case client.ServerError:
		logger.Warn("Server error", zap.Uint16("code", ev.Code), zap.String("message", ev.Message))
	case client.LobbyChatReceived:
		logger.Info("Lobby chat", zap.String("from", ev.SenderName), zap.String("text", ev.Text))
	case client.GameChatReceived:
		logger.Info("Game chat", zap.String("from", ev.SenderName), zap.String("text", ev.Text))
	default:
		logger.Debug("Client event", zap.String("event", fmt.Sprintf("%T", e)))
	}
}
