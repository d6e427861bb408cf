package cli

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/osdep/internal/clock"
	"github.com/mrz1836/osdep/internal/ctxutil"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/mutex"
)

// MutexFlags holds flags for the mutex command.
type MutexFlags struct {
	// Shared creates a process-shared mutex.
	Shared bool
	// Name is the lock file name of a shared mutex.
	Name string
	// Cycles is the number of acquire/release pairs.
	Cycles int
	// Hold keeps the lock for this long on the first cycle.
	Hold time.Duration
}

// MutexResult is the structured output of the mutex command.
type MutexResult struct {
	Shared        bool   `json:"shared" yaml:"shared"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty"`
	Cycles        int    `json:"cycles" yaml:"cycles"`
	ElapsedMicros int64  `json:"elapsed_us" yaml:"elapsed_us"`
}

// AddMutexCommand adds the mutex command to the root command.
func AddMutexCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &MutexFlags{}
	cmd := &cobra.Command{
		Use:   "mutex",
		Short: "Exercise the lock primitive",
		Long: `Create a mutex and run acquire/release cycles on it.

A shared mutex also locks a file under mutex.shared_dir, so two osdep
processes using the same --name exclude each other. Use --hold to keep the
first acquisition for a while and watch a second process wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMutex(cmd.Context(), cmd.OutOrStdout(), global.Output, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.Shared, "shared", false, "create a process-shared mutex")
	cmd.Flags().StringVar(&flags.Name, "name", "", "lock file name for --shared")
	cmd.Flags().IntVar(&flags.Cycles, "cycles", 10000, "acquire/release cycles")
	cmd.Flags().DurationVar(&flags.Hold, "hold", 0, "hold the lock on the first cycle")

	root.AddCommand(cmd)
}

// runMutex executes the mutex command.
func runMutex(ctx context.Context, w io.Writer, format string, flags *MutexFlags) error {
	if flags.Cycles < 1 {
		return errors.Wrapf(errors.ErrArgumentFailure, "--cycles must be at least 1, got %d", flags.Cycles)
	}

	p, _, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	mflags := mutex.Private
	var opts []mutex.Option
	if flags.Shared {
		mflags = mutex.Shared
		if flags.Name != "" {
			opts = append(opts, mutex.WithName(flags.Name))
		}
	}

	m, err := p.Mutexes.Create(mflags, opts...)
	if err != nil {
		return err
	}
	defer m.Destroy()

	var start clock.Timestamp
	if _, err := p.Time.Sample(&start); err != nil {
		return err
	}
	for i := range flags.Cycles {
		m.Acquire()
		if i == 0 && flags.Hold > 0 {
			zerolog.Ctx(ctx).Info().Dur("hold", flags.Hold).Str("path", m.Path()).Msg("holding lock")
			if err := ctxutil.Sleep(ctx, flags.Hold); err != nil {
				m.Release()
				return err
			}
		}
		m.Release()
	}
	var end clock.Timestamp
	if _, err := p.Time.Sample(&end); err != nil {
		return err
	}

	result := &MutexResult{
		Shared:        m.Shared(),
		Path:          m.Path(),
		Cycles:        flags.Cycles,
		ElapsedMicros: p.Time.DiffMicros(start, end),
	}
	return render(w, format, result, func(w io.Writer) {
		fields := []field{{"shared", result.Shared}}
		if result.Path != "" {
			fields = append(fields, field{"path", result.Path})
		}
		fields = append(fields,
			field{"cycles", result.Cycles},
			field{"elapsed", time.Duration(result.ElapsedMicros) * time.Microsecond})
		writeReport(w, "Mutex", fields)
	})
}
