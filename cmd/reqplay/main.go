package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/funnyzak/reqplay/internal/config"
	"github.com/funnyzak/reqplay/internal/console"
	"github.com/funnyzak/reqplay/internal/history"
	"github.com/funnyzak/reqplay/internal/logger"
	"github.com/funnyzak/reqplay/internal/replay"
	"github.com/funnyzak/reqplay/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqplay",
	Short: "Replay recorded HTTP requests from a sqlite history database",
	Long: `Reqplay reads the request history recorded by the logging middleware and
re-issues the requests, in order, against a target base URL.

It can reproduce a bug or restore an application to the state captured in the
history database, either in one non-interactive pass or confirming each
request interactively.
`,
	SilenceUsage: true,
	RunE:         runReplay,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("db-file", "f", "", "Path to the sqlite history database")
	rootCmd.PersistentFlags().String("table", "", "History table name")
	rootCmd.PersistentFlags().StringP("base-url", "b", "", "Base URL of the target service")
	rootCmd.PersistentFlags().StringSliceP("excluded-urls", "e", []string{}, "Request paths never replayed")
	rootCmd.PersistentFlags().IntP("start-from-id", "m", 0, "1-based position within the filtered sequence to resume from")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "Preview the sanitized sequence without network calls")
	rootCmd.PersistentFlags().IntP("max-column-width", "w", 0, "Maximum table column width")
	rootCmd.PersistentFlags().BoolP("interactive", "i", false, "Confirm each request before replaying it")
	rootCmd.PersistentFlags().BoolP("skip-request-errors", "s", false, "Continue past non-2xx responses")
	rootCmd.PersistentFlags().Bool("legacy-offset", true, "Keep the historical start-offset behavior (duplicates the tail)")
	rootCmd.PersistentFlags().Int("timeout", 0, "Per-request timeout in seconds")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("log-file-enable", false, "Enable file logging")
	rootCmd.PersistentFlags().String("log-file-path", "", "Log file path")

	bindFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

func bindFlags(cmd *cobra.Command) {
	viper.BindPFlag("store.path", cmd.PersistentFlags().Lookup("db-file"))
	viper.BindPFlag("store.table", cmd.PersistentFlags().Lookup("table"))
	viper.BindPFlag("replay.base_url", cmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("replay.excluded_urls", cmd.PersistentFlags().Lookup("excluded-urls"))
	viper.BindPFlag("replay.start_from_id", cmd.PersistentFlags().Lookup("start-from-id"))
	viper.BindPFlag("replay.skip_request_errors", cmd.PersistentFlags().Lookup("skip-request-errors"))
	viper.BindPFlag("replay.legacy_offset", cmd.PersistentFlags().Lookup("legacy-offset"))
	viper.BindPFlag("replay.timeout", cmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("output.max_column_width", cmd.PersistentFlags().Lookup("max-column-width"))
	viper.BindPFlag("output.interactive", cmd.PersistentFlags().Lookup("interactive"))
	viper.BindPFlag("output.dry_run", cmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", cmd.PersistentFlags().Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", cmd.PersistentFlags().Lookup("log-file-path"))
}

func runReplay(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	return run(cmd.Context(), cfg, os.Stdin, os.Stdout, os.Stderr)
}

// run drives the whole sequence: validate, read and sanitize the history,
// then preview or replay it.
func run(ctx context.Context, cfg *config.Config, in io.Reader, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Interactive runs keep everything on stdout so tables, prompts, and
	// errors interleave in the order they happened.
	errOut := stderr
	if cfg.Output.Interactive {
		errOut = stdout
	}
	log := logger.NewLogger(&cfg.Log, errOut)
	cons := console.New(in, stdout, errOut)

	store, err := history.Open(cfg.Store.Path, cfg.Store.Table, log)
	if err != nil {
		return err
	}
	defer store.Close()

	all := store.Records(ctx)
	if len(all) == 0 {
		return fmt.Errorf("there are no records on db '%s'", store.Path())
	}

	sanitized := history.Sanitize(all, history.SanitizeOptions{
		ExcludedPaths: cfg.Replay.ExcludedURLs,
		StartFrom:     cfg.Replay.StartFromID,
		LegacyOffset:  cfg.Replay.LegacyOffset,
	})
	if len(sanitized) == 0 {
		return fmt.Errorf("there are no processable records on db '%s' (all %d records were filtered out)",
			store.Path(), len(all))
	}

	printSummary(cons, cfg, store.Path(), len(all), len(sanitized))

	if cfg.Output.DryRun {
		rendered := table.RenderRecords(sanitized, cfg.Output.MaxColumnWidth)
		if cfg.Output.Interactive {
			if err := table.NewPager().Show(rendered); err != nil {
				return err
			}
		} else {
			cons.Infof("%s", rendered)
		}
		cons.Infof("done.")
		return nil
	}

	replayer := replay.New(log, cons, replay.Options{
		BaseURL:               cfg.Replay.BaseURL,
		Timeout:               time.Duration(cfg.Replay.Timeout) * time.Second,
		TLSInsecureSkipVerify: cfg.Replay.TLSInsecureSkipVerify,
		AuthToken:             cfg.Replay.AuthToken,
		SkipRequestErrors:     cfg.Replay.SkipRequestErrors,
		Interactive:           cfg.Output.Interactive,
		MaxColumnWidth:        cfg.Output.MaxColumnWidth,
	})

	err = replayer.Run(ctx, sanitized)
	switch {
	case err == nil:
		cons.Successf("Replayed %d request(s).", len(sanitized))
		return nil
	case errors.Is(err, replay.ErrQuit):
		cons.Infof("Stopped.")
		return nil
	case errors.Is(err, replay.ErrRequestFailed):
		cons.Failf("Exiting after receiving error...")
		return err
	default:
		return err
	}
}

// applyFlagOverrides gives command line arguments the highest priority over
// config file values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if v, err := flags.GetString("db-file"); err == nil && v != "" {
		cfg.Store.Path = v
	}
	if v, err := flags.GetString("table"); err == nil && v != "" {
		cfg.Store.Table = v
	}
	if v, err := flags.GetString("base-url"); err == nil && v != "" {
		cfg.Replay.BaseURL = v
	}
	if v, err := flags.GetStringSlice("excluded-urls"); err == nil && len(v) > 0 {
		cfg.Replay.ExcludedURLs = v
	}
	if v, err := flags.GetInt("start-from-id"); err == nil && flags.Changed("start-from-id") {
		cfg.Replay.StartFromID = v
	}
	if v, err := flags.GetBool("skip-request-errors"); err == nil && flags.Changed("skip-request-errors") {
		cfg.Replay.SkipRequestErrors = v
	}
	if v, err := flags.GetBool("legacy-offset"); err == nil && flags.Changed("legacy-offset") {
		cfg.Replay.LegacyOffset = v
	}
	if v, err := flags.GetInt("timeout"); err == nil && v != 0 {
		cfg.Replay.Timeout = v
	}
	if v, err := flags.GetInt("max-column-width"); err == nil && v != 0 {
		cfg.Output.MaxColumnWidth = v
	}
	if v, err := flags.GetBool("interactive"); err == nil && flags.Changed("interactive") {
		cfg.Output.Interactive = v
	}
	if v, err := flags.GetBool("dry-run"); err == nil && flags.Changed("dry-run") {
		cfg.Output.DryRun = v
	}
	if v, err := flags.GetString("log-level"); err == nil && v != "" {
		cfg.Log.Level = v
	}
	if v, err := flags.GetBool("log-file-enable"); err == nil && flags.Changed("log-file-enable") {
		cfg.Log.FileLogging.Enable = v
	}
	if v, err := flags.GetString("log-file-path"); err == nil && v != "" {
		cfg.Log.FileLogging.Path = v
	}
}

func printSummary(cons *console.Console, cfg *config.Config, dbPath string, total, processable int) {
	size := "unknown size"
	if info, err := os.Stat(dbPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	cons.Noticef("History db: %s (%s)", dbPath, size)
	if len(cfg.Replay.ExcludedURLs) > 0 {
		cons.Noticef("Excluded urls:")
		for _, u := range cfg.Replay.ExcludedURLs {
			cons.Noticef("\t%s", u)
		}
	}
	cons.Infof("Number of total records: %d", total)
	cons.Infof("Number of processable records: %d", processable)
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("Reqplay version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", buildDate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
