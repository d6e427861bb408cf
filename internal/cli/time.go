package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/osdep/internal/clock"
	"github.com/mrz1836/osdep/internal/ctxutil"
	"github.com/mrz1836/osdep/internal/errors"
)

// TimeFlags holds flags for the time command.
type TimeFlags struct {
	// Samples is the number of clock samples to take.
	Samples int
	// Interval overrides time.sample_interval when positive.
	Interval time.Duration
}

// TimeSample is one clock reading relative to the previous one.
type TimeSample struct {
	Seconds     int64  `json:"seconds" yaml:"seconds"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	DeltaMillis int64  `json:"delta_ms" yaml:"delta_ms"`
	DeltaMicros int64  `json:"delta_us" yaml:"delta_us"`
	Ordered     bool   `json:"ordered" yaml:"ordered"`
}

// TimeResult is the structured output of the time command.
type TimeResult struct {
	Kind          string       `json:"kind" yaml:"kind"`
	Mode          string       `json:"mode" yaml:"mode"`
	Samples       []TimeSample `json:"samples" yaml:"samples"`
	ElapsedMillis int64        `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// AddTimeCommand adds the time command to the root command.
func AddTimeCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &TimeFlags{}
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Sample the platform clock",
		Long: `Sample the build-selected clock several times and print the differences
between consecutive samples in milliseconds and microseconds.

Build with -tags highres for the monotonic high-resolution clock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTime(cmd.Context(), cmd.OutOrStdout(), global.Output, flags)
		},
	}

	cmd.Flags().IntVar(&flags.Samples, "samples", 3, "number of samples")
	cmd.Flags().DurationVar(&flags.Interval, "interval", 0, "pause between samples (default from time.sample_interval)")

	root.AddCommand(cmd)
}

// runTime executes the time command.
func runTime(ctx context.Context, w io.Writer, format string, flags *TimeFlags) error {
	if flags.Samples < 1 {
		return errors.Wrapf(errors.ErrArgumentFailure, "--samples must be at least 1, got %d", flags.Samples)
	}

	p, cfg, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	interval := flags.Interval
	if interval <= 0 {
		interval = cfg.Time.SampleInterval
	}

	result, err := sampleClock(ctx, p.Time, flags.Samples, interval)
	if err != nil {
		return err
	}

	return render(w, format, result, func(w io.Writer) {
		fields := []field{{"kind", result.Kind}, {"mode", result.Mode}}
		for _, s := range result.Samples {
			fields = append(fields, field{s.Timestamp, formatDelta(s)})
		}
		fields = append(fields, field{"elapsed", time.Duration(result.ElapsedMillis) * time.Millisecond})
		writeReport(w, "Clock", fields)
	})
}

func formatDelta(s TimeSample) string {
	return (time.Duration(s.DeltaMicros) * time.Microsecond).String()
}

// sampleClock takes n samples from src, pausing interval between them.
func sampleClock(ctx context.Context, src clock.TimeSource, n int, interval time.Duration) (*TimeResult, error) {
	result := &TimeResult{Kind: src.Kind().String(), Mode: clock.Mode}

	var first, prev clock.Timestamp
	for i := range n {
		if i > 0 {
			if err := ctxutil.Sleep(ctx, interval); err != nil {
				return nil, err
			}
		}

		var now clock.Timestamp
		secs, err := src.Sample(&now)
		if err != nil {
			return nil, err
		}
		sample := TimeSample{Seconds: secs, Timestamp: now.String(), Ordered: true}
		if i == 0 {
			first = now
		} else {
			sample.DeltaMillis = src.DiffMillis(prev, now)
			sample.DeltaMicros = src.DiffMicros(prev, now)
			sample.Ordered = src.Compare(prev, now)
		}
		result.Samples = append(result.Samples, sample)
		prev = now
	}

	elapsed, err := clock.Elapsed(src, first)
	if err != nil {
		return nil, err
	}
	result.ElapsedMillis = elapsed
	return result, nil
}
