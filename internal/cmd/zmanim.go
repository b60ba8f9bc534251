package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/zmanimbot/internal/zmanim"
)

var (
	zmanimDate     string
	zmanimTomorrow bool
	zmanimBackends []string
	zmanimZman     string
	zmanimOffline  bool
)

var zmanimCmd = &cobra.Command{
	Use:   "zmanim",
	Short: "Print the zmanim message for a day",
	Long: `Compute and print the zmanim reply for the configured location without
any chat transport. Useful to check a location or backend configuration.`,
	Args: cobra.NoArgs,
	RunE: runZmanim,
}

func init() {
	rootCmd.AddCommand(zmanimCmd)

	zmanimCmd.Flags().StringVar(&zmanimDate, "date", "", "Day to compute, YYYY-MM-DD (default: today at the location)")
	zmanimCmd.Flags().BoolVar(&zmanimTomorrow, "tomorrow", false, "Compute the day after --date")
	zmanimCmd.Flags().StringSliceVar(&zmanimBackends, "backend", nil, "Backends in priority order (default: zmanim.backends)")
	zmanimCmd.Flags().StringVar(&zmanimZman, "zman", "", "Print a single zman, e.g. shkiat_hachama")
	zmanimCmd.Flags().BoolVar(&zmanimOffline, "offline", false, "Skip the Hebcal service")
}

func runZmanim(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	backends := cfg.Zmanim.Backends
	if len(zmanimBackends) > 0 {
		backends = zmanimBackends
	}
	z, err := buildZmanim(ctx, cfg, log, backends, zmanimOffline)
	if err != nil {
		return err
	}
	loc := z.provider.Location()

	q := zmanim.Query{Type: zmanim.QueryAll, Target: zmanim.Today}
	if zmanimTomorrow {
		q.Target = zmanim.Tomorrow
	}
	if zmanimZman != "" {
		q.Type, q.Zman = zmanim.QuerySpecific, zmanim.Zman(zmanimZman)
		if !q.Zman.Valid() {
			return fmt.Errorf("unknown zman %q", zmanimZman)
		}
	}

	now := time.Now()
	if zmanimDate != "" {
		now, err = time.ParseInLocation(time.DateOnly, zmanimDate, loc.TZ)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}
	day := q.Day(loc, now)

	result, err := z.provider.Compute(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to compute zmanim for %s: %w", day.Format(time.DateOnly), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), zmanim.Formatter{Location: loc}.Render(result, z.dates.Header(ctx, day), q))
	return nil
}
