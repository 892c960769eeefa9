package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/audit"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/chat"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/gateway"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/insights"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/pricing"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/properties"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/users"
	"github.com/ciaohost/concierge/cmd/ciaohost/internal/version"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

func NewCiaohostCommand() *cobra.Command {
	var configPath string
	short := fmt.Sprintf("%s ciaohost - real-estate concierge for CiaoHost v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:           "ciaohost",
		Short:         short,
		Example:       "ciaohost chat -m \"Avete case a Roma?\"",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configPath == "" {
				return nil
			}
			return os.Setenv(config.EnvCiaoHostConfig, configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $CIAOHOST_HOME/config.json)")

	cmd.AddCommand(
		chat.NewChatCommand(),
		gateway.NewGatewayCommand(),
		users.NewUsersCommand(),
		properties.NewPropertiesCommand(),
		pricing.NewPricingCommand(),
		insights.NewInsightsCommand(),
		audit.NewAuditCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewCiaohostCommand()
	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
