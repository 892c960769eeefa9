package pricing

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciaohost/concierge/cmd/ciaohost/internal"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/pricing"
)

func NewPricingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "AI-assisted price recommendations and the season calendar",
	}
	cmd.AddCommand(newRecommendCommand(), newSeasonsCommand())
	return cmd
}

type marketFlags struct {
	avgPrice     float64
	occupancy    int
	season       string
	date         string
	events       []string
	avgPriceSet  bool
	occupancySet bool
}

func newRecommendCommand() *cobra.Command {
	var f marketFlags

	cmd := &cobra.Command{
		Use:   "recommend <property-id>",
		Short: "Suggest low, medium and high nightly prices for a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			_, cat, err := internal.OpenCatalog(cfg)
			if err != nil {
				return err
			}
			prop, ok := cat.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", catalog.ErrNotFound, args[0])
			}

			f.avgPriceSet = cmd.Flags().Changed("avg-price")
			f.occupancySet = cmd.Flags().Changed("occupancy")
			market, err := buildMarket(cfg, prop, f, time.Now())
			if err != nil {
				return err
			}

			rec, err := internal.NewPricingRecommender(cfg)
			if err != nil {
				return err
			}
			return printRecommendation(cmd.OutOrStdout(), prop, rec.Recommend(cmd.Context(), prop, market))
		},
	}

	cmd.Flags().Float64Var(&f.avgPrice, "avg-price", 0, "Average nightly price in the area (default: property price + 10%)")
	cmd.Flags().IntVar(&f.occupancy, "occupancy", 70, "Average occupancy in the area, in percent")
	cmd.Flags().StringVar(&f.season, "season", "", "Current period, e.g. \"Festività\" (default: from the season calendar)")
	cmd.Flags().StringVar(&f.date, "date", "", "Stay date YYYY-MM-DD used to pick the season (default: today)")
	cmd.Flags().StringSliceVar(&f.events, "event", nil, "Local event (repeatable)")
	return cmd
}

// buildMarket starts from the property defaults, takes the period from the
// season calendar unless --season names one, then applies the other flags.
func buildMarket(cfg *config.Config, p catalog.Property, f marketFlags, now time.Time) (pricing.MarketData, error) {
	market := pricing.DefaultMarket(p)

	if f.season != "" {
		market.Season = f.season
	} else {
		date := now
		if f.date != "" {
			d, err := time.Parse(pricing.DateLayout, f.date)
			if err != nil {
				return market, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", f.date)
			}
			date = d
		}
		cal, err := pricing.NewSeasonStore(cfg.SeasonsPath()).Load()
		if err != nil {
			return market, err
		}
		if s, ok := pricing.SeasonFor(cal.Seasons, date); ok {
			market = pricing.ApplySeason(market, p, s)
		}
	}

	if f.avgPriceSet {
		market.AveragePrice = f.avgPrice
	}
	if f.occupancySet {
		market.AverageOccupancy = f.occupancy
	}
	market.LocalEvents = f.events
	return market, nil
}

func printRecommendation(out io.Writer, p catalog.Property, rec pricing.Recommendation) error {
	if !rec.OK() {
		return fmt.Errorf("errore nella generazione delle raccomandazioni: %s", rec.Error)
	}
	fmt.Fprintf(out, "%s Raccomandazioni di prezzo per %s\n", internal.Logo, p.Name)
	fmt.Fprintf(out, "  Prezzo Basso: %s\n", catalog.FormatPrice(rec.LowPrice))
	fmt.Fprintf(out, "  Prezzo Medio: %s\n", catalog.FormatPrice(rec.MediumPrice))
	fmt.Fprintf(out, "  Prezzo Alto:  %s\n", catalog.FormatPrice(rec.HighPrice))
	fmt.Fprintf(out, "\nMotivo delle raccomandazioni:\n%s\n", rec.Reasons)
	return nil
}

func newSeasonsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasons",
		Short: "Manage the pricing season calendar",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List seasons and mark the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runSeasonsList(cfg, cmd.OutOrStdout(), time.Now())
		},
	}

	var notes string
	add := &cobra.Command{
		Use:   "add <name> <start YYYY-MM-DD> <end YYYY-MM-DD> <modifier%>",
		Short: "Add a season",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runSeasonsAdd(cfg, cmd.OutOrStdout(), args, notes)
		},
	}
	add.Flags().StringVar(&notes, "notes", "", "Notes, e.g. events or holidays")

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a season",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return runSeasonsDelete(cfg, cmd.OutOrStdout(), args[0])
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func runSeasonsList(cfg *config.Config, out io.Writer, now time.Time) error {
	cal, err := pricing.NewSeasonStore(cfg.SeasonsPath()).Load()
	if err != nil {
		return err
	}
	if len(cal.Seasons) == 0 {
		fmt.Fprintln(out, "Nessuna stagione definita.")
		return nil
	}

	current, hasCurrent := pricing.SeasonFor(cal.Seasons, now)
	for _, s := range cal.Seasons {
		marker := " "
		if hasCurrent && s.ID == current.ID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s: %s (%s - %s) %+d%%", marker, s.ID, s.Name, s.StartDate, s.EndDate, s.PriceModifier)
		if s.Notes != "" {
			fmt.Fprintf(out, " - %s", s.Notes)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runSeasonsAdd(cfg *config.Config, out io.Writer, args []string, notes string) error {
	modifier, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(args[3], "+"), "%"))
	if err != nil {
		return fmt.Errorf("%w: modifier %q is not a whole percentage", pricing.ErrInvalidSeason, args[3])
	}

	store := pricing.NewSeasonStore(cfg.SeasonsPath())
	cal, err := store.Load()
	if err != nil {
		return err
	}
	s, err := cal.Add(pricing.Season{
		Name:          args[0],
		StartDate:     args[1],
		EndDate:       args[2],
		PriceModifier: modifier,
		Notes:         notes,
	})
	if err != nil {
		return err
	}
	if err := store.Save(cal); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Stagione %s aggiunta con ID %s.\n", s.Name, s.ID)
	return nil
}

func runSeasonsDelete(cfg *config.Config, out io.Writer, id string) error {
	store := pricing.NewSeasonStore(cfg.SeasonsPath())
	cal, err := store.Load()
	if err != nil {
		return err
	}
	s, err := cal.Remove(id)
	if err != nil {
		return err
	}
	if err := store.Save(cal); err != nil {
		return err
	}
	fmt.Fprintf(out, "🗑️ Stagione %s eliminata.\n", s.Name)
	return nil
}
