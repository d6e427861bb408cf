package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/osdep/internal/clock"
	"github.com/mrz1836/osdep/internal/config"
	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/mutex"
	"github.com/mrz1836/osdep/internal/platform"
	"github.com/mrz1836/osdep/internal/trace"
)

// CheckResult is the outcome of one self test check.
type CheckResult struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	// Status is the engine status code of the failure, zero on success.
	Status int `json:"status" yaml:"status"`
}

// SelfTestResult is the structured output of the selftest command.
type SelfTestResult struct {
	Passed bool          `json:"passed" yaml:"passed"`
	Checks []CheckResult `json:"checks" yaml:"checks"`
}

// selfTestCheck is one named check.
type selfTestCheck struct {
	name string
	run  func(ctx context.Context, p *platform.Platform) (string, error)
}

// selfTestChecks returns the checks in report order.
func selfTestChecks() []selfTestCheck {
	return []selfTestCheck{
		{"time", checkTime},
		{"entropy", checkEntropy},
		{"mutex", checkMutex},
		{"fileload", checkFileLoad},
		{"trace", checkTrace},
	}
}

// AddSelfTestCommand adds the selftest command to the root command.
func AddSelfTestCommand(root *cobra.Command, global *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Check every platform component",
		Long: `Open every platform component and exercise it concurrently. Exits with
a non-zero status if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSelfTest(cmd.Context(), cmd.OutOrStdout(), global.Output)
		},
	}
	root.AddCommand(cmd)
}

// runSelfTest executes the selftest command.
func runSelfTest(ctx context.Context, w io.Writer, format string) error {
	p, _, err := openPlatform(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	result := selfTest(ctx, p, selfTestChecks())

	if err := render(w, format, result, func(w io.Writer) { writeSelfTestReport(w, result) }); err != nil {
		return err
	}
	if !result.Passed {
		return errors.ErrSelfTestFailed
	}
	return nil
}

// selfTest runs checks concurrently. A failing check does not cancel the
// others; every result is reported.
func selfTest(ctx context.Context, p *platform.Platform, checks []selfTestCheck) *SelfTestResult {
	logger := zerolog.Ctx(ctx)
	results := make([]CheckResult, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			detail, err := c.run(gctx, p)
			results[i] = CheckResult{Name: c.name, Passed: err == nil, Detail: detail}
			if err != nil {
				results[i].Error = err.Error()
				results[i].Status = errors.Status(err)
				logger.Warn().Err(err).Str("check", c.name).Msg("self test check failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	passed := true
	for _, r := range results {
		passed = passed && r.Passed
	}
	return &SelfTestResult{Passed: passed, Checks: results}
}

func writeSelfTestReport(w io.Writer, result *SelfTestResult) {
	styles := newReportStyles()
	_, _ = fmt.Fprintln(w, styles.header.Render("Self test"))
	for _, c := range result.Checks {
		status := styles.ok.Render("ok  ")
		detail := c.Detail
		if !c.Passed {
			status = styles.fail.Render("FAIL")
			detail = c.Error
		}
		_, _ = fmt.Fprintf(w, "  %s %s %s\n", status, styles.key.Render(c.Name), styles.dim.Render(detail))
	}
}

func checkTime(_ context.Context, p *platform.Platform) (string, error) {
	var a, b clock.Timestamp
	if _, err := p.Time.Sample(&a); err != nil {
		return "", err
	}
	if _, err := p.Time.Sample(&b); err != nil {
		return "", err
	}
	if !p.Time.Compare(a, b) {
		return "", fmt.Errorf("%w: clock ran backward (%s then %s)", errors.ErrPlatformFailure, a, b)
	}
	if d := p.Time.DiffMicros(a, b); d < 0 {
		return "", fmt.Errorf("%w: negative difference %dus", errors.ErrPlatformFailure, d)
	}
	return fmt.Sprintf("%s clock, %s build", p.Time.Kind(), clock.Mode), nil
}

func checkEntropy(_ context.Context, p *platform.Platform) (string, error) {
	a := make([]byte, 64)
	b := make([]byte, 64)
	if _, err := p.Entropy.Fill(a); err != nil {
		return "", err
	}
	if _, err := p.Entropy.Fill(b); err != nil {
		return "", err
	}
	if bytes.Equal(a, b) {
		return "", fmt.Errorf("%w: two fills returned identical bytes", errors.ErrPlatformFailure)
	}
	return fmt.Sprintf("128 bytes, aliased=%t", p.Entropy.Aliased()), nil
}

func checkMutex(ctx context.Context, p *platform.Platform) (string, error) {
	m, err := p.Mutexes.Create(mutex.Shared)
	if err != nil {
		return "", err
	}
	defer m.Destroy()

	const workers, rounds = 4, 250
	counter := 0
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for range rounds {
				if err := gctx.Err(); err != nil {
					return err
				}
				m.Acquire()
				counter++
				m.Release()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	if counter != workers*rounds {
		return "", fmt.Errorf("%w: lost updates, counted %d of %d", errors.ErrFatalCorruption, counter, workers*rounds)
	}
	return fmt.Sprintf("%d cycles on %s", counter, m.Path()), nil
}

func checkFileLoad(_ context.Context, p *platform.Platform) (string, error) {
	dir, err := os.MkdirTemp("", "osdep-selftest-*")
	if err != nil {
		return "", errors.Classify(errors.ErrPlatformFailure, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	want := []byte("hello\n")
	path := filepath.Join(dir, "fileload.txt")
	if err := os.WriteFile(path, want, 0o600); err != nil {
		return "", errors.Classify(errors.ErrPlatformFailure, err)
	}

	buf, err := p.Load(path)
	if err != nil {
		return "", err
	}
	defer buf.Release()

	raw := buf.Raw()
	if !bytes.Equal(buf.Bytes(), want) || len(raw) != len(want)+1 || raw[len(want)] != 0 {
		return "", fmt.Errorf("%w: loaded %q", errors.ErrPlatformFailure, raw)
	}
	return fmt.Sprintf("%d bytes round-tripped", buf.Len()), nil
}

// checkTrace writes through a private sink so the process stream is untouched.
func checkTrace(_ context.Context, _ *platform.Platform) (string, error) {
	dir, err := os.MkdirTemp("", "osdep-selftest-*")
	if err != nil {
		return "", errors.Classify(errors.ErrPlatformFailure, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "trace.log")
	sink := trace.New(config.TraceConfig{File: path})

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.TraceInt("writer %d\n", int64(i))
		}()
	}
	wg.Wait()
	if err := sink.Close(); err != nil {
		return "", errors.Classify(errors.ErrPlatformFailure, err)
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path is inside our temp dir
	if err != nil {
		return "", errors.Classify(errors.ErrPlatformFailure, err)
	}
	if got := bytes.Count(data, []byte("\n")); got != 4 {
		return "", fmt.Errorf("%w: expected 4 trace lines, got %d", errors.ErrPlatformFailure, got)
	}
	return "4 concurrent writers, one stream", nil
}
