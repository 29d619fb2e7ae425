package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pagetrail/pagetrail-server/internal/logger"
	"github.com/pagetrail/pagetrail-server/internal/service"
	"github.com/pagetrail/pagetrail-server/internal/store/sqlite"
)

var (
	flagDB      string
	flagVerbose bool
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "statsctl",
	Short: "Inspect and repair PageTrail book statistics",
	Long: `statsctl opens a PageTrail SQLite database directly.

It can recompute rating aggregates, reconcile drifted counters and print
the reviewer and reading-speed rankings.

The database path comes from --db, falling back to DATABASE_PATH. A .env
file in the working directory is loaded first, as the server does.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; real environment variables still win.
		_ = godotenv.Load()
		if flagNoColor || !isTTY(cmd.OutOrStdout()) {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to the SQLite database (default: $DATABASE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log store and service activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// session is an open database with the services the commands need.
type session struct {
	store      *sqlite.Store
	aggregates *service.AggregateService
	rankings   *service.RankingService
}

func (s *session) Close() error {
	return s.store.Close()
}

func openSession(ctx context.Context) (*session, error) {
	path := flagDB
	if path == "" {
		path = os.Getenv("DATABASE_PATH")
	}
	if path == "" {
		return nil, fmt.Errorf("no database given: pass --db or set DATABASE_PATH")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}

	log := logger.Discard()
	if flagVerbose {
		log = logger.New(logger.Config{Writer: os.Stderr, Level: slog.LevelDebug})
	}

	st, err := sqlite.Open(path, log.Component("store"))
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &session{
		store:      st,
		aggregates: service.NewAggregateService(st, service.AggregateOptions{}, log.Component("aggregates")),
		rankings:   service.NewRankingService(st, service.RankingOptions{}, log.Component("rankings")),
	}, nil
}

func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("warning:"), fmt.Sprintf(format, args...))
}

func ok(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓"), fmt.Sprintf(format, args...))
}
