package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/cardiowatch/internal/logging"
)

var log = logging.Component("cli")

// ServeOptions holds flags for the long-running commands.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewSensorCommand creates the sensor command.
func NewSensorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sensor",
		Short: "Generate simulated readings into the store",
		Long: `Append one simulated heart-rate reading to the store every
sensor.interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config()
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			return newSensor(cfg, st).Run(cmd.Context())
		},
	}
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the dashboard and send alerts",
		Long: `Analyse the store every monitor.refresh_interval, send chat alerts for
anomalous readings and serve the web dashboard. Readings come from a
separately running "cardiowatch sensor".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, false)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run sensor, monitor and dashboard in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, true)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	return cmd
}

// serve runs the monitor and dashboard, plus the sensor when withSensor is
// set, until ctx is cancelled or one of them fails.
func serve(ctx context.Context, opts *ServeOptions, withSensor bool) error {
	cfg := opts.Config()
	if opts.Listen != "" {
		cfg.Dashboard.Listen = opts.Listen
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	mon := newMonitor(cfg, st)
	srv := newDashboard(cfg, st, mon)

	log.Info("starting", "store", st.Path(), "listen", cfg.Dashboard.Listen, "sensor", withSensor)

	g, ctx := errgroup.WithContext(ctx)
	if withSensor {
		sen := newSensor(cfg, st)
		g.Go(func() error { return sen.Run(ctx) })
	}
	g.Go(func() error { return mon.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	return g.Wait()
}
