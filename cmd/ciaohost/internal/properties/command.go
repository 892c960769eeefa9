package properties

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/config"
)

func NewPropertiesCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "properties",
		Aliases: []string{"props"},
		Short:   "Browse the property catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runList(cfg, cmd.OutOrStdout(), all)
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "Include properties that are not available")

	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search available properties by name, type or location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runSearch(cfg, cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	cmd.AddCommand(list, search)
	return cmd
}

func runList(cfg *config.Config, out io.Writer, all bool) error {
	_, cat, err := internal.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	props := cat.Available()
	if all {
		props = cat.Properties()
	}
	printProperties(out, props)
	return nil
}

func runSearch(cfg *config.Config, out io.Writer, term string) error {
	_, cat, err := internal.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	props, fallback := cat.Search(term)
	if fallback {
		fmt.Fprintf(out, "Nessun risultato per %q, ecco tutte le proprietà disponibili:\n", term)
	}
	printProperties(out, props)
	return nil
}

func printProperties(out io.Writer, props []catalog.Property) {
	if len(props) == 0 {
		fmt.Fprintln(out, "Nessuna proprietà disponibile.")
		return
	}
	for _, p := range props {
		fmt.Fprintf(out, "🏠 %s (%s) a %s - %s/notte - %s\n",
			p.Name, p.Type, p.Location, catalog.FormatPrice(p.Price), p.Status)
		if len(p.Services) > 0 {
			fmt.Fprintf(out, "   Servizi: %s\n", strings.Join(p.Services, ", "))
		}
		if p.Phone != "" {
			fmt.Fprintf(out, "   Telefono: %s\n", p.Phone)
		}
	}
}
