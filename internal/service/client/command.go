package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/light-orchestra/internal/config"
	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/service/common"
)

// Action performs one call on a connected client.
type Action func(ctx context.Context, client *common.Client) (*structpb.Struct, error)

// Options configures a ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Name labels the action in logs.
	Name string

	// Retry keeps calling until success or cancellation instead of failing fast.
	Retry bool

	// RetryInterval is the delay between attempts, defaults to one second.
	RetryInterval time.Duration

	// Output receives the response, defaults to stdout.
	Output io.Writer
}

// defaultRetryInterval defines retry delay between attempts.
const defaultRetryInterval = 1 * time.Second

// LoadSettings reads the config, or builds one from the address override when
// no config file exists.
func LoadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && opts.ServerAddress != "":
		cfg = &config.Config{ServerAddress: opts.ServerAddress}
		if err = config.Validate(cfg); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	// Use server address from options if provided, otherwise use config.
	if opts.ServerAddress != "" {
		cfg.ServerAddress = opts.ServerAddress
	}

	return cfg, nil
}

// Run dials the server and performs action, retrying when asked to.
func Run(ctx context.Context, opts *Options, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "orchestra-ctl")

	cfg, err := LoadSettings(opts)
	if err != nil {
		return err
	}

	// Connect to the server with timeout from config.
	client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling server", "server_address", cfg.ServerAddress, "action", opts.Name)

	// attempt tries once, returns (completed, error).
	attempt := func() (bool, error) {
		response, err := action(ctx, client)
		if err != nil {
			if !opts.Retry {
				return false, err
			}

			// Log error but continue retrying for transient failures.
			logger.ErrorKV(ctx, "Call failed, retrying", "action", opts.Name, "error", err)

			return false, nil
		}

		return true, printResponse(opts.Output, response)
	}

	// Attempt immediately before starting retry loop.
	if done, err := attempt(); err != nil {
		return err
	} else if done {
		return nil
	}

	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	// Setup retry timer for subsequent attempts.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Retry loop until success or cancellation.
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil {
				return err
			}

			if done {
				return nil
			}
		}
	}
}

// printResponse writes response as indented JSON.
func printResponse(w io.Writer, response *structpb.Struct) error {
	if w == nil {
		w = os.Stdout
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
