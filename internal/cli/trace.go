package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/osdep/internal/ctxutil"
)

// TraceResult is the structured output of the trace command.
type TraceResult struct {
	Destination string `json:"destination" yaml:"destination"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Bytes       int    `json:"bytes" yaml:"bytes"`
}

// AddTraceCommand adds the trace command to the root command.
func AddTraceCommand(root *cobra.Command, global *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "trace MESSAGE...",
		Short: "Write a line to the trace stream",
		Long: `Write a line to the diagnostic trace stream.

The stream is chosen on first write: PSCORE_DEBUG_FILE (truncated), then
PSCORE_DEBUG_FILE_APPEND (appended), then standard output.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), cmd.OutOrStdout(), global.Output, strings.Join(args, " "))
		},
	}
	root.AddCommand(cmd)
}

// runTrace executes the trace command.
func runTrace(ctx context.Context, w io.Writer, format, message string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	p, _, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	line := message + "\n"
	p.Trace.Trace(line)
	dest, path := p.Trace.Destination()

	result := &TraceResult{Destination: string(dest), Path: path, Bytes: len(line)}
	return render(w, format, result, func(w io.Writer) {
		// The trace line itself already went to stdout.
		if path == "" {
			return
		}
		writeReport(w, "Trace", []field{
			{"destination", result.Destination},
			{"path", result.Path},
			{"bytes", result.Bytes},
		})
	})
}
