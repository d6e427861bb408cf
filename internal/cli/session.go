package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/mutex"
	"github.com/mrz1836/osdep/internal/platform"
	"github.com/mrz1836/osdep/internal/trace"
)

// traceSink returns the sink platforms write to. Tests swap it for a
// private sink so each test resolves its own trace file.
var traceSink = trace.Configure //nolint:gochecknoglobals // Test seam

// openPlatform loads the effective configuration and opens every component.
// The first call in a process fixes the trace destination. A fatal error is
// logged before the process aborts.
func openPlatform(ctx context.Context, opts ...platform.Option) (*platform.Platform, *config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	fatal := func(err error) {
		logger.Error().Err(err).Msg("fatal platform error, aborting")
		CloseLogFile()
		mutex.Abort(err)
	}

	opts = append([]platform.Option{
		platform.WithTraceSink(traceSink(cfg.Trace)),
		platform.WithFatalHandler(fatal),
	}, opts...)
	p, err := platform.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open platform: %w", err)
	}
	return p, cfg, nil
}
