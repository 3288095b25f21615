package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"countryreport/internal/config"
	"countryreport/internal/logging"
	"countryreport/internal/report"
)

type rootFlags struct {
	configPath  string
	dbPath      string
	driver      string
	sourceURL   string
	sourceFile  string
	logLevel    string
	locale      string
	metricsFile string
	traceSQL    bool
}

// cliContext carries what PersistentPreRunE resolved to the subcommands.
type cliContext struct {
	flags rootFlags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}

	root := &cobra.Command{
		Use:   "countryreport",
		Short: "Load the public country list into SQL and report on it",
		Long: `countryreport fetches the public country list, replaces a local SQL
snapshot with it in one transaction, and prints aggregate statistics.

Running without a subcommand is the same as "countryreport run".

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage or configuration error
  3  - Panic or unexpected system error
  10 - Source answered with a non-2xx HTTP status
  11 - Source body is not a JSON array
  12 - Store error (schema, insert, commit, query)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, cc.flags)
			if err != nil {
				return err
			}
			cc.cfg = cfg
			return logging.Setup(os.Stderr, cfg.LogLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cc.flags.configPath, "config", "c", config.FileName, "Path to the YAML config file")
	pf.StringVar(&cc.flags.dbPath, "db", "", "SQLite database file (default "+config.DefaultDBPath+")")
	pf.StringVar(&cc.flags.driver, "driver", "", "Store driver: sqlite, mysql or postgres")
	pf.StringVar(&cc.flags.sourceURL, "source-url", "", "Country API endpoint")
	pf.StringVar(&cc.flags.sourceFile, "source-file", "", "Read countries from a local JSON file instead of the API")
	pf.StringVar(&cc.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&cc.flags.locale, "locale", "", "Locale used for digit grouping (e.g. en, de-DE)")
	pf.StringVar(&cc.flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each refresh")
	pf.BoolVar(&cc.flags.traceSQL, "trace-sql", false, "Log every SQL statement at debug level")

	run := newRunCmd(cc)
	root.RunE = run.RunE

	root.AddCommand(
		run,
		newLoadCmd(cc),
		newReportCmd(cc),
		newWatchCmd(cc),
		newRunsCmd(cc),
		newMCPCmd(cc),
		newVersionCmd(),
	)
	return root
}

// resolveConfig layers defaults, the config file, .env and COUNTRYREPORT_*
// variables, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, f rootFlags) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(f.configPath)
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	case err != nil:
		return nil, fmt.Errorf("%s: %w", f.configPath, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = f.dbPath
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = f.driver
	}
	if flags.Changed("source-url") {
		cfg.Source.URL = f.sourceURL
	}
	if flags.Changed("source-file") {
		cfg.Source.File = f.sourceFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("locale") {
		cfg.Locale = f.locale
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if flags.Changed("trace-sql") {
		cfg.TraceSQL = f.traceSQL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := report.ParseLocale(cfg.Locale); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Execute runs the root command. Source failures are explained on stdout,
// everything else on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil && !printDiagnostic(os.Stdout, err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
