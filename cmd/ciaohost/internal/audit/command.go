package audit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/config"
)

var (
	errAuditDisabled = errors.New("audit trail is disabled (audit.enabled)")
	errNoSecret      = errors.New("audit.secret is not set: events were signed with a per-run key and cannot be verified")
)

func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the admin audit trail",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runList(cfg, cmd.OutOrStdout(), limit)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "verify",
			Short: "Check the signature chain of the audit trail",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return err
				}
				return runVerify(cfg, cmd.OutOrStdout())
			},
		},
		list,
		&cobra.Command{
			Use:   "prune",
			Short: "Drop events older than audit.retention_days",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return err
				}
				return runPrune(cfg, cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func open(cfg *config.Config) (*audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return nil, errAuditDisabled
	}
	return audit.New(internal.AuditConfig(cfg))
}

func runVerify(cfg *config.Config, out io.Writer) error {
	if cfg.Audit.Secret == "" {
		return errNoSecret
	}
	l, err := open(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	events, err := audit.ReadEvents(cfg.AuditPath())
	if err != nil {
		return err
	}
	if _, err := l.VerifyChain(); err != nil {
		return fmt.Errorf("audit trail tampered: %w", err)
	}
	fmt.Fprintf(out, "✅ Audit trail intatto: %d eventi verificati.\n", len(events))
	return nil
}

func runList(cfg *config.Config, out io.Writer, limit int) error {
	events, err := audit.ReadEvents(cfg.AuditPath())
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(events) == 0) {
		fmt.Fprintln(out, "Nessun evento registrato.")
		return nil
	}
	if err != nil {
		return err
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	for _, ev := range events {
		status := "ok"
		if !ev.Success {
			status = "failed"
		}
		fmt.Fprintf(out, "%s  %-18s %-6s %s", ev.Timestamp.Local().Format("2006-01-02 15:04:05"), ev.EventType, status, ev.Actor)
		if ev.Resource != "" {
			fmt.Fprintf(out, " → %s", ev.Resource)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runPrune(cfg *config.Config, out io.Writer) error {
	if cfg.Audit.RetentionDays <= 0 {
		fmt.Fprintln(out, "audit.retention_days is 0: events are kept forever.")
		return nil
	}
	l, err := open(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.CleanupOldLogs(); err != nil {
		return fmt.Errorf("pruning audit trail: %w", err)
	}
	fmt.Fprintf(out, "🗑️ Eventi più vecchi di %d giorni rimossi.\n", cfg.Audit.RetentionDays)
	return nil
}
