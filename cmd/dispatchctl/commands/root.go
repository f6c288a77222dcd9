package commands

import (
	"context"
	"courier-dispatch-service/internal/app"
	"courier-dispatch-service/internal/config"
	"courier-dispatch-service/internal/platform/obs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfg      config.Config
	logLevel string
)

func Execute() error {
	root := &cobra.Command{
		Use:          "dispatchctl",
		Short:        "Courier dispatch quoting and tracking CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return obs.Configure(obs.LogOptions{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default LOG_LEVEL or info)")

	root.AddCommand(migrateCmd(), quoteCmd(), trackCmd())
	return root.ExecuteContext(context.Background())
}

// signalContext is cancelled on interrupt so long-running commands exit cleanly.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newWire(ctx context.Context, opts ...app.Option) (*app.Wire, error) {
	return app.NewWire(ctx, cfg, opts...)
}
