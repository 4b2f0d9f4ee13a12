package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"footballetl/internal/config"
	"footballetl/internal/ingest"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}
	root := &cobra.Command{
		Use:           "footballetl",
		Short:         "Football match results ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config path (default "+config.DefaultPath+")")
	pf.String("log-level", "info", "log level: trace|debug|info|warn|error")
	pf.String("log-format", "text", "log format: text|json")
	pf.String("metrics-backend", "none", "metrics backend: none|pushgateway|datadog")
	mustBind(opts.v, "log.level", pf.Lookup("log-level"))
	mustBind(opts.v, "log.format", pf.Lookup("log-format"))
	mustBind(opts.v, "metrics.backend", pf.Lookup("metrics-backend"))

	root.AddCommand(
		newIngestCmd(opts),
		newBackfillCmd(opts),
		newDiscoverCmd(opts),
		newValidateCmd(opts),
	)
	return root
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var seasonFlag, divisionFlag string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, archive and load one season",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.ingestor.Run(cmd.Context(), ingest.Request{Season: seasonFlag, Division: divisionArg(divisionFlag)})
			fmt.Fprintf(cmd.OutOrStdout(), "run=%s season=%s division=%s rows=%d deleted=%d inserted=%d archive=%s\n",
				res.RunID, res.Season, res.Division, res.Rows, res.Load.DeletedTotal, res.Load.Inserted, res.ArchiveKey)
			return err
		},
	}
	cmd.Flags().StringVar(&seasonFlag, "season", "", "season label such as 2425 (default: season in progress)")
	cmd.Flags().StringVar(&divisionFlag, "division", "", "division code (default E0)")
	return cmd
}

func newBackfillCmd(opts *rootOptions) *cobra.Command {
	var divisionFlag string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ingest every season of a range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			b := a.cfg.Backfill
			sum, err := a.ingestor.Backfill(cmd.Context(), ingest.BackfillRequest{
				StartYear:   b.StartYear,
				EndYear:     b.EndYear,
				Division:    divisionArg(divisionFlag),
				Delay:       b.Delay,
				Concurrency: b.Concurrency,
			})
			printBackfill(cmd.OutOrStdout(), sum)
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	f := cmd.Flags()
	f.Int("start-year", ingest.DefaultBackfillStart, "first season start year")
	f.Int("end-year", ingest.DefaultBackfillEnd, "last season start year")
	f.Duration("delay", ingest.DefaultBackfillDelay, "pause between season runs")
	f.Int("concurrency", 1, "seasons processed in parallel")
	f.StringVar(&divisionFlag, "division", "", "division code (default E0)")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		bindRange(opts.v, cmd.Flags())
		mustBind(opts.v, "backfill.concurrency", cmd.Flags().Lookup("concurrency"))
	}
	return cmd
}

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var divisionFlag string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the columns common to every season of a range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openFeedOnly(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			b := a.cfg.Backfill
			res, err := a.ingestor.Discover(cmd.Context(), ingest.DiscoverRequest{
				StartYear: b.StartYear,
				EndYear:   b.EndYear,
				Division:  divisionArg(divisionFlag),
				Delay:     b.Delay,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seasons=%d failed=%d\n", len(res.Seasons), len(res.Failed))
			for _, f := range res.Failed {
				fmt.Fprintf(out, "  skipped %s: %v\n", f.Season, f.Err)
			}
			fmt.Fprintf(out, "common columns (%d): %s\n", len(res.Columns), strings.Join(res.Columns, ","))
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("start-year", ingest.DefaultBackfillStart, "first season start year")
	f.Int("end-year", ingest.DefaultBackfillEnd, "last season start year")
	f.Duration("delay", ingest.DefaultBackfillDelay, "pause between downloads")
	f.StringVar(&divisionFlag, "division", "", "division code (default E0)")
	cmd.PreRun = func(cmd *cobra.Command, _ []string) { bindRange(opts.v, cmd.Flags()) }
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.v, opts.configPath)
			if err != nil {
				return err
			}
			issues := config.Validate(*cfg)
			out := cmd.OutOrStdout()
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}
}

func printBackfill(w io.Writer, sum ingest.BackfillSummary) {
	total := len(sum.Succeeded) + len(sum.Failed)
	fmt.Fprintf(w, "succeeded: %d/%d\n", len(sum.Succeeded), total)
	fmt.Fprintf(w, "failed: %d/%d\n", len(sum.Failed), total)
	for _, f := range sum.Failed {
		fmt.Fprintf(w, "  %s: %v\n", f.Season, f.Err)
	}
}

// divisionArg keeps an unset flag as nil so the default-division path logs
// its fallback.
func divisionArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// bindRange binds the season-range flags. backfill and discover share the
// keys, so binding happens when a command runs rather than when it is built.
func bindRange(v *viper.Viper, f *pflag.FlagSet) {
	mustBind(v, "backfill.start_year", f.Lookup("start-year"))
	mustBind(v, "backfill.end_year", f.Lookup("end-year"))
	mustBind(v, "backfill.delay", f.Lookup("delay"))
}

// mustBind binds a flag into viper so flags override file and env values.
func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}
