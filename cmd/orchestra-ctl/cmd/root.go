package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/service/client"
	"github.com/oshokin/light-orchestra/internal/service/common"
	"github.com/oshokin/light-orchestra/internal/service/monitor"
	"github.com/oshokin/light-orchestra/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides server_addr from the config.
	serverAddress string
	// logLevel overrides the configured log level.
	logLevel string
	// retry keeps calling until the server answers.
	retry bool
	// duty is the optional duty cycle of the tone command; negative means server default.
	duty float64
	// gapMs is the silence between melody notes.
	gapMs int64
	// interval is the monitor polling period.
	interval time.Duration

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "orchestra-ctl",
		Short: "Send commands to a running orchestra server.",
		Long: `Sends note, tone, melody and stop commands to an orchestra server over gRPC
and prints the JSON response. Read-only probes (health, sensor, status) and a
live terminal monitor (watch) are available too.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if logLevel != "" && !logger.SetLevelString(logLevel) {
				logger.Warnf(context.Background(), "Unknown log level %q, keeping %s", logLevel, logger.Level())
			}
		},
	}
)

// Execute runs the orchestra-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// call runs one action against the server with graceful interruption.
func call(cmd *cobra.Command, name string, action client.Action) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Name:          name,
		Retry:         retry,
		Output:        cmd.OutOrStdout(),
	}

	return client.Run(ctx, options, action)
}

// parseFloatArg parses a numeric positional argument.
func parseFloatArg(name, value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}

	return parsed, nil
}

func newNoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "note <hz> <seconds>",
		Short: "Play a single note for a number of seconds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hz, err := parseFloatArg("frequency", args[0])
			if err != nil {
				return err
			}

			seconds, err := parseFloatArg("duration", args[1])
			if err != nil {
				return err
			}

			return call(cmd, "note", func(ctx context.Context, c *common.Client) (*structpb.Struct, error) {
				return c.PlayNote(ctx, hz, seconds)
			})
		},
	}
}

func newToneCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "tone <hz> <ms>",
		Short: "Play a single note for a number of milliseconds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hz, err := parseFloatArg("frequency", args[0])
			if err != nil {
				return err
			}

			ms, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[1], err)
			}

			return call(cmd, "tone", func(ctx context.Context, c *common.Client) (*structpb.Struct, error) {
				return c.Tone(ctx, hz, ms, duty)
			})
		},
	}

	command.Flags().Float64Var(&duty, "duty", -1, "duty cycle in [0, 1], server default when omitted")

	return command
}

func newMelodyCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "melody <hz:ms>...",
		Short:   "Play notes in order, e.g. melody 262:200 330:200 392:400.",
		Args:    cobra.MinimumNArgs(1),
		Example: "orchestra-ctl melody 262:200 294:200 330:200 --gap 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := client.ParseNotes(args)
			if err != nil {
				return err
			}

			return call(cmd, "melody", func(ctx context.Context, c *common.Client) (*structpb.Struct, error) {
				return c.Melody(ctx, notes, gapMs)
			})
		},
	}

	command.Flags().Int64Var(&gapMs, "gap", 0, "silence between notes in milliseconds")

	return command
}

// newSimpleCommand builds a command without arguments around one client method.
func newSimpleCommand(
	use, short string,
	method func(*common.Client, context.Context) (*structpb.Struct, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, use, func(ctx context.Context, c *common.Client) (*structpb.Struct, error) {
				return method(c, ctx)
			})
		},
	}
}

func newWatchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "watch",
		Short: "Show a live view of the arbiter and the light sensor.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Name:          "watch",
			}

			return client.Watch(ctx, options, interval)
		},
	}

	command.Flags().DurationVar(&interval, "interval", monitor.DefaultInterval, "polling interval")

	return command
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "server address, overrides server_addr")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&retry, "retry", false, "keep retrying until the server answers")

	rootCmd.AddCommand(
		newNoteCommand(),
		newToneCommand(),
		newMelodyCommand(),
		newSimpleCommand("stop", "Silence everything and end any command.", (*common.Client).Stop),
		newSimpleCommand("health", "Print server health and device identity.", (*common.Client).Health),
		newSimpleCommand("sensor", "Print the current light sensor reading.", (*common.Client).Sensor),
		newSimpleCommand("status", "Print the arbiter state.", (*common.Client).Status),
		newWatchCommand(),
	)
}
