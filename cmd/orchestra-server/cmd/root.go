package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/service/server"
	"github.com/oshokin/light-orchestra/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the HTTP listen address.
	httpAddress string
	// logLevel overrides the configured log level.
	logLevel string
	// force terminates other running servers.
	force bool

	// rootCmd represents the base command for running the orchestra server.
	rootCmd = &cobra.Command{
		Use:   "orchestra-server [listen-address]",
		Short: "Play the light sensor on a tone generator and accept remote commands.",
		Long: `Starts the tone arbiter together with the gRPC and HTTP command APIs.

While idle, the light sensor is quantized onto a two-octave scale and played on
the configured output device. Remote commands (note, tone, melody, stop) preempt
the ambient tone and keep it muted for their duration plus a safety margin.

Only the port from server_addr config is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:50051).
The device is silenced on SIGINT/SIGTERM before the process exits.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				LogLevel:      logLevel,
				Force:         force,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the orchestra-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http", "", "HTTP listen address, overrides http_addr")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error), overrides log_level")
	rootCmd.Flags().BoolVar(&force, "force", false, "terminate other running servers instead of refusing to start")
}
