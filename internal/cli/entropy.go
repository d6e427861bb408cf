package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/osdep/internal/ctxutil"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/logging"
	"github.com/mrz1836/osdep/internal/platform"
)

// maxEntropyBytes caps a single CLI request.
const maxEntropyBytes = 1 << 20

// EntropyFlags holds flags for the entropy command.
type EntropyFlags struct {
	// Bytes is the number of random bytes to produce.
	Bytes int
	// Hex prints the bytes.
	Hex bool
}

// EntropyResult is the structured output of the entropy command.
type EntropyResult struct {
	Requested int    `json:"requested" yaml:"requested"`
	Filled    int    `json:"filled" yaml:"filled"`
	Aliased   bool   `json:"aliased" yaml:"aliased"`
	Hex       string `json:"hex,omitempty" yaml:"hex,omitempty"`
}

// AddEntropyCommand adds the entropy command to the root command.
func AddEntropyCommand(root *cobra.Command, global *GlobalFlags) {
	flags := &EntropyFlags{}
	cmd := &cobra.Command{
		Use:   "entropy",
		Short: "Fill a buffer from the entropy source",
		Long: `Fill a buffer from the preferred entropy source, falling back to the
guaranteed source when the preferred one would block.

Examples:
  osdep entropy                 # 32 bytes, summary only
  osdep entropy -n 64 --hex     # print 64 random bytes as hex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEntropy(cmd.Context(), cmd.OutOrStdout(), global.Output, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.Bytes, "bytes", "n", 32, "number of bytes to fill")
	cmd.Flags().BoolVar(&flags.Hex, "hex", false, "print the bytes as hex")

	root.AddCommand(cmd)
}

// runEntropy executes the entropy command.
func runEntropy(ctx context.Context, w io.Writer, format string, flags *EntropyFlags) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if flags.Bytes < 0 || flags.Bytes > maxEntropyBytes {
		return errors.Wrapf(errors.ErrArgumentFailure, "--bytes must be between 0 and %d, got %d", maxEntropyBytes, flags.Bytes)
	}

	p, _, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	result, err := fillEntropy(ctx, p, flags)
	if err != nil {
		return err
	}

	return render(w, format, result, func(w io.Writer) {
		fields := []field{
			{"requested", result.Requested},
			{"filled", result.Filled},
			{"aliased", result.Aliased},
		}
		writeReport(w, "Entropy", fields)
		if result.Hex != "" {
			_, _ = fmt.Fprintln(w, result.Hex)
		}
	})
}

// fillEntropy fills flags.Bytes bytes and logs the outcome.
func fillEntropy(ctx context.Context, p *platform.Platform, flags *EntropyFlags) (*EntropyResult, error) {
	logger := zerolog.Ctx(ctx)

	buf := make([]byte, flags.Bytes)
	n, err := p.Entropy.Fill(buf)
	if err != nil {
		logger.Error().Err(err).Int("requested", flags.Bytes).Int("filled", n).Msg("entropy fill failed")
		return nil, fmt.Errorf("entropy fill: %w", err)
	}

	result := &EntropyResult{
		Requested: flags.Bytes,
		Filled:    n,
		Aliased:   p.Entropy.Aliased(),
	}
	if flags.Hex {
		result.Hex = hex.EncodeToString(buf[:n])
	}

	logger.Debug().
		Int("filled", n).
		Str("entropy_hex", logging.RedactIfSensitive("entropy_hex", result.Hex)).
		Msg("entropy filled")
	return result, nil
}
