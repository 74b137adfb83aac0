package client

import (
	"context"
	"time"

	"github.com/oshokin/light-orchestra/internal/logger"
	"github.com/oshokin/light-orchestra/internal/service/common"
	"github.com/oshokin/light-orchestra/internal/service/monitor"
)

// Watch opens the live monitor against the configured server.
func Watch(ctx context.Context, opts *Options, interval time.Duration) error {
	ctx = logger.WithName(ctx, "orchestra-ctl")

	cfg, err := LoadSettings(opts)
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	return monitor.Run(ctx, client, cfg.ServerAddress, interval)
}
