package insights

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/insights"
)

func NewInsightsCommand() *cobra.Command {
	var report string

	cmd := &cobra.Command{
		Use:   "insights [question]",
		Short: "Ask the AI for an analysis of the property catalog",
		Example: `  ciaohost insights
  ciaohost insights "Quale località ha i prezzi più alti?"
  ciaohost insights --report executive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			_, cat, err := internal.OpenCatalog(cfg)
			if err != nil {
				return err
			}
			provider, model, err := internal.NewProvider(cfg)
			if err != nil {
				return err
			}
			analyst := insights.NewAnalyst(provider, model)
			return run(cmd.Context(), cmd.OutOrStdout(), cat, analyst, strings.Join(args, " "), report)
		},
	}

	cmd.Flags().StringVarP(&report, "report", "r", "", "Generate a report instead: overview, detailed or executive")
	return cmd
}

func run(ctx context.Context, out io.Writer, cat *catalog.Catalog, analyst *insights.Analyst, question, report string) error {
	summary := insights.Summary(cat)

	var (
		text string
		err  error
	)
	if report != "" {
		if strings.TrimSpace(question) != "" {
			return fmt.Errorf("a question cannot be combined with --report")
		}
		kind, kerr := insights.ParseReportKind(report)
		if kerr != nil {
			return kerr
		}
		text, err = analyst.Report(ctx, summary, kind)
	} else {
		text, err = analyst.Insights(ctx, summary, question)
	}
	if err != nil {
		return fmt.Errorf("errore nella generazione dell'analisi: %w", err)
	}

	fmt.Fprintf(out, "%s Analisi del portafoglio\n\n%s\n", internal.Logo, text)
	return nil
}
