package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/osdep/internal/ctxutil"
)

// LoadResult is the structured output of the load command.
type LoadResult struct {
	Path       string `json:"path" yaml:"path"`
	Bytes      int    `json:"bytes" yaml:"bytes"`
	Terminated bool   `json:"terminated" yaml:"terminated"`
	PoolLimit  int64  `json:"pool_limit" yaml:"pool_limit"`
}

// AddLoadCommand adds the load command to the root command.
func AddLoadCommand(root *cobra.Command, global *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "load PATH",
		Short: "Load a whole file into a pool buffer",
		Long: `Load a file the way the engine loads certificates and keys: the whole file
is read into a buffer one byte longer than the file, and the extra byte is zero.

fileload.pool_limit caps the bytes the pool may hand out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), cmd.OutOrStdout(), global.Output, args[0])
		},
	}
	root.AddCommand(cmd)
}

// runLoad executes the load command.
func runLoad(ctx context.Context, w io.Writer, format, path string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	p, cfg, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	buf, err := p.Load(path)
	if err != nil {
		return err
	}
	defer buf.Release()

	raw := buf.Raw()
	result := &LoadResult{
		Path:       path,
		Bytes:      buf.Len(),
		Terminated: raw[len(raw)-1] == 0,
		PoolLimit:  cfg.FileLoad.PoolLimit,
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Int("bytes", result.Bytes).Msg("file loaded")

	return render(w, format, result, func(w io.Writer) {
		writeReport(w, "File", []field{
			{"path", result.Path},
			{"bytes", result.Bytes},
			{"terminated", result.Terminated},
		})
	})
}
