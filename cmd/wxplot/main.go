// Command wxplot renders weather graphics from the command line: gridded
// field maps, EOF decompositions, skew-T soundings and NWS meteograms, one
// at a time or from a YAML job file.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/wx-graphics/internal/config"
	"github.com/couchcryptid/wx-graphics/internal/observability"
	"github.com/couchcryptid/wx-graphics/internal/plots"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand shares; it is filled in by the root
// command's pre-run hook.
type app struct {
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runner  *plots.Runner
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "wxplot",
		Short:        "Render weather maps, soundings and meteograms",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newFieldCmd(a),
		newEOFCmd(a),
		newSoundingCmd(a),
		newMeteogramCmd(a),
		newBatchCmd(a),
		newValidateCmd(a),
		newPublishCmd(a),
		newRegionsCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	a.metrics = observability.NewMetricsWith(prometheus.NewRegistry())
	a.runner = plots.NewRunnerFromConfig(cfg, clockwork.NewRealClock(), a.metrics, a.logger)
	return nil
}
