package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rustyeddy/propjournal/apex"
	"github.com/rustyeddy/propjournal/config"
	"github.com/rustyeddy/propjournal/health"
	"github.com/rustyeddy/propjournal/internal/logging"
	"github.com/rustyeddy/propjournal/journal"
	"github.com/rustyeddy/propjournal/journal/postgres"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "propjournal",
	Short: "Trade journal and drawdown health tracker for funded accounts",
	Long: `Propjournal records the closed trades of funded trading accounts and
reports how close each account is to its trailing drawdown stop.

It provides tools for:
  - Tracking high-water mark, trailing stop and stop lock per account
  - Estimating probability of ruin from the trade history
  - Kelly-based lot size limits and pre-trade checks
  - Importing and exporting trades as CSV or Org-mode

The journal lives in SQLite by default; PostgreSQL is supported through
journal.type=postgres and a DSN.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

var (
	cfgFile     string
	dbPath      string
	dsn         string
	logLevel    string
	journalType string

	cfg    *config.Config
	logger *slog.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (overrides config, implies --journal postgres)")
	rootCmd.PersistentFlags().StringVar(&journalType, "journal", "", "journal backend: sqlite, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// loadRuntime resolves config and logger before any subcommand runs.
func loadRuntime(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch {
	case journalType != "":
		c.Journal.Type = journalType
	case dsn != "":
		c.Journal.Type = config.JournalPostgres
	case dbPath != "":
		c.Journal.Type = config.JournalSQLite
	}
	if dbPath != "" {
		c.Journal.DBPath = dbPath
	}
	if dsn != "" {
		c.Journal.DSN = dsn
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cfg = c
	logger = logging.New(os.Stderr, c.Log.Level, c.Log.Format)
	return nil
}

// openStore opens the configured journal backend.
func openStore(ctx context.Context) (journal.Store, error) {
	switch cfg.Journal.Type {
	case config.JournalMemory:
		return journal.NewMemory(), nil
	case config.JournalPostgres:
		s, err := postgres.Open(ctx, cfg.Journal.DSN, postgres.PoolConfig{MaxConns: cfg.Journal.MaxConns}, logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		s, err := journal.NewSQLite(cfg.Journal.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return s, nil
	}
}

func loadTiers() (apex.TierTable, error) {
	tiers, err := cfg.Tiers()
	if err != nil {
		return nil, fmt.Errorf("load tiers: %w", err)
	}
	return tiers, nil
}

func newService(store journal.Store) (*health.Service, error) {
	tiers, err := loadTiers()
	if err != nil {
		return nil, err
	}
	engine, err := apex.New(tiers)
	if err != nil {
		return nil, fmt.Errorf("tiers: %w", err)
	}
	return health.NewService(store, engine, cfg.SizingPolicy(), logger)
}
