package users

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered users",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "register <email> <password>",
			Short: "Register a new user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return err
				}
				return runRegister(cfg, cmd.OutOrStdout(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return err
				}
				return runList(cfg, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "login <email> <password>",
			Short: "Check a user's credentials",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := internal.LoadConfig()
				if err != nil {
					return err
				}
				return runLogin(cfg, cmd.OutOrStdout(), args[0], args[1])
			},
		},
	)
	return cmd
}

func runRegister(cfg *config.Config, out io.Writer, email, password string) error {
	store, cat, err := internal.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	if err := cat.Register(email, password, cfg.Admin.Username); err != nil {
		return err
	}
	if err := store.Save(cat); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}

	auditLog, err := audit.New(internal.AuditConfig(cfg))
	if err == nil {
		if err := auditLog.Log(audit.Event{EventType: audit.EventUserRegistered, Actor: "cli", Resource: email, Success: true}); err != nil {
			logger.WarnCF("users", "Audit write failed", map[string]any{"error": err.Error()})
		}
		auditLog.Close()
	}

	fmt.Fprintf(out, "✅ Registrazione completata per %s.\n", email)
	return nil
}

func runList(cfg *config.Config, out io.Writer) error {
	_, cat, err := internal.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	users := cat.Users()
	if len(users) == 0 {
		fmt.Fprintln(out, "Nessun utente registrato.")
		return nil
	}
	fmt.Fprintf(out, "%d utenti registrati:\n", len(users))
	for _, u := range users {
		fmt.Fprintf(out, "  • %s\n", u.Email)
	}
	return nil
}

func runLogin(cfg *config.Config, out io.Writer, email, password string) error {
	_, cat, err := internal.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	id, err := cat.Login(email, password, catalog.Credentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		return err
	}
	if id.Admin {
		fmt.Fprintf(out, "🔓 Accesso admin per %s.\n", id.Email)
		return nil
	}
	fmt.Fprintf(out, "✅ Accesso effettuato come %s.\n", id.Email)
	return nil
}
