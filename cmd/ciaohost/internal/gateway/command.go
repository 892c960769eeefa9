package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/channels"
	"github.com/ciaohost/concierge/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func NewGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Aliases: []string{"g"},
		Short:   "Serve the concierge over the configured chat channels",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return gatewayCmd(cmd, debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func gatewayCmd(cmd *cobra.Command, debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	app, err := internal.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	msgBus := bus.NewMessageBus()
	manager, err := channels.NewManagerFromConfig(cfg.Channels, msgBus)
	if err != nil {
		return err
	}
	if len(manager.EnabledChannels()) == 0 {
		return errors.New("no channel enabled: set channels.websocket.enabled or channels.telegram.enabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Gateway started on %v (Ctrl+C to stop)\n", internal.Logo, manager.EnabledChannels())
	logger.InfoCF("gateway", "Gateway started", map[string]any{
		"channels":   manager.EnabledChannels(),
		"properties": app.Catalog.Len(),
		"model":      app.Model,
	})

	go app.RunMaintenance(ctx, internal.MaintenanceInterval)

	loopErr := make(chan error, 1)
	go func() { loopErr <- app.Loop.Run(ctx, msgBus) }()

	select {
	case <-ctx.Done():
	case err := <-loopErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCF("gateway", "Concierge loop stopped", map[string]any{"error": err.Error()})
		}
	}

	logger.InfoC("gateway", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = manager.StopAll(shutdownCtx)
	msgBus.Close()
	logger.Sync()
	return nil
}
