// Command oresults prints validations, scores and rankings straight from the
// event database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/oresults/config"
	bundb "github.com/padraicbc/oresults/db"
	applog "github.com/padraicbc/oresults/logger"
	"github.com/padraicbc/oresults/results"
)

var rootCmd = &cobra.Command{
	Use:   "oresults",
	Short: "oresults - orienteering results from the command line",
	Long: `oresults validates punch cards against courses, scores runs, runners and
teams, and prints rankings for courses, categories and relays.`,
	SilenceUsage: true,
}

var (
	eventPath string
	debug     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&eventPath, "event", "", "event YAML file (default EVENT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log strategy and ranking activity")

	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scoreCmd)
}

// openEvent connects to the configured database and builds the event. The
// returned function closes the database and flushes the logger.
func openEvent(ctx context.Context) (*results.Event, func(), error) {
	cfg := config.LoadTool()
	log, err := applog.NewConsole(debug || cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	path := eventPath
	if path == "" {
		path = cfg.EventConfig
	}
	opts, err := config.LoadEventOptions(path)
	if err != nil {
		return nil, nil, err
	}

	db, err := bundb.Open(cfg.DBDriver, cfg.DSN(), false)
	if err != nil {
		return nil, nil, err
	}
	snap, err := bundb.LoadSnapshot(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Debug("snapshot loaded", zap.String("event", path), zap.String("kind", string(opts.Kind)))

	closer := func() {
		db.Close()
		_ = log.Sync()
	}
	return results.NewEvent(snap, opts, results.WithLogger(log)), closer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
