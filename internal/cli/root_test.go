package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/osdep/internal/errors"
	"github.com/mrz1836/osdep/internal/trace"
)

// runRoot executes the osdep root command with args and returns stdout,
// stderr and the command error.
func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "test"})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd(&GlobalFlags{}, BuildInfo{})

	tests := []struct {
		path  []string
		flags []string
	}{
		{[]string{"entropy"}, []string{"bytes", "hex"}},
		{[]string{"time"}, []string{"samples", "interval"}},
		{[]string{"load"}, nil},
		{[]string{"trace"}, nil},
		{[]string{"mutex"}, []string{"shared", "name", "cycles", "hold"}},
		{[]string{"selftest"}, nil},
		{[]string{"config", "show"}, nil},
	}

	for _, tc := range tests {
		t.Run(strings.Join(tc.path, " "), func(t *testing.T) {
			t.Parallel()

			sub, rest, err := root.Find(tc.path)
			require.NoError(t, err)
			require.Empty(t, rest)
			assert.Equal(t, tc.path[len(tc.path)-1], sub.Name())
			assert.NotEmpty(t, sub.Short)
			assert.NotNil(t, sub.InheritedFlags().Lookup("output"), "global flags reach %s", sub.Name())
			for _, name := range tc.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "%s --%s", sub.Name(), name)
			}
		})
	}
}

func TestRootCmd_OutputFormats(t *testing.T) {
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{OutputJSON, json.Unmarshal},
		{OutputYAML, yaml.Unmarshal},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			isolateEnv(t)

			stdout, _, err := runRoot(t, "--output", tc.format, "time", "--samples", "2", "--interval", "1ms")
			require.NoError(t, err)

			var result TimeResult
			require.NoError(t, tc.decode([]byte(stdout), &result))
			assert.Len(t, result.Samples, 2)
			assert.NotEmpty(t, result.Kind)
		})
	}

	t.Run(OutputText, func(t *testing.T) {
		isolateEnv(t)

		stdout, _, err := runRoot(t, "time", "--samples", "1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "Clock")
		assert.Contains(t, stdout, "elapsed")
	})
}

// TestRootCmd_ExitCodes runs real command lines and checks the exit code
// each one maps to.
func TestRootCmd_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
		kind error
	}{
		{"valid run", []string{"entropy", "-n", "4"}, ExitSuccess, nil},
		{"unknown output format", []string{"-o", "xml", "time"}, ExitInvalidInput, errors.ErrInvalidOutputFormat},
		{"verbose and quiet together", []string{"-v", "-q", "time"}, ExitInvalidInput, nil},
		{"unknown command", []string{"frobnicate"}, ExitInvalidInput, nil},
		{"non-numeric byte count", []string{"entropy", "-n", "abc"}, ExitInvalidInput, nil},
		{"byte count out of range", []string{"entropy", "--bytes=-1"}, ExitInvalidInput, errors.ErrArgumentFailure},
		{"load without a path", []string{"load"}, ExitInvalidInput, nil},
		{"zero mutex cycles", []string{"mutex", "--cycles", "0"}, ExitInvalidInput, errors.ErrArgumentFailure},
		{"lock name escapes its directory", []string{"mutex", "--shared", "--name", "../x"}, ExitInvalidInput, errors.ErrArgumentFailure},
		{"missing file", []string{"load", "no-such.pem"}, ExitError, errors.ErrPlatformFailure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)

			stdout, _, err := runRoot(t, tc.args...)
			assert.Equal(t, tc.want, ExitCodeForError(err), "err: %v", err)
			if tc.kind != nil {
				require.ErrorIs(t, err, tc.kind)
			}
			if err != nil {
				assert.NotContains(t, stdout, "Usage:", "usage is silenced on errors")
			}
		})
	}
}

func TestRootCmd_TraceEnv(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		sizeMB string
		want   trace.Destination
		file   string
	}{
		{
			name: "PSCORE_DEBUG_FILE overwrites",
			env:  map[string]string{"PSCORE_DEBUG_FILE": "a.log"},
			want: trace.DestinationOverwrite,
			file: "a.log",
		},
		{
			name: "PSCORE_DEBUG_FILE_APPEND appends",
			env:  map[string]string{"PSCORE_DEBUG_FILE_APPEND": "b.log"},
			want: trace.DestinationAppend,
			file: "b.log",
		},
		{
			name: "overwrite path wins over append path",
			env:  map[string]string{"PSCORE_DEBUG_FILE": "a.log", "PSCORE_DEBUG_FILE_APPEND": "b.log"},
			want: trace.DestinationOverwrite,
			file: "a.log",
		},
		{
			name: "OSDEP_TRACE_FILE is a fallback name",
			env:  map[string]string{"OSDEP_TRACE_FILE": "c.log"},
			want: trace.DestinationOverwrite,
			file: "c.log",
		},
		{
			name: "PSCORE_DEBUG_FILE wins over OSDEP_TRACE_FILE",
			env:  map[string]string{"PSCORE_DEBUG_FILE": "a.log", "OSDEP_TRACE_FILE": "c.log"},
			want: trace.DestinationOverwrite,
			file: "a.log",
		},
		{
			name:   "rotation applies to the append path",
			env:    map[string]string{"PSCORE_DEBUG_FILE_APPEND": "b.log"},
			sizeMB: "1",
			want:   trace.DestinationRotating,
			file:   "b.log",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := isolateEnv(t)
			t.Setenv("OSDEP_TRACE_FILE", "")
			for k, v := range tc.env {
				t.Setenv(k, filepath.Join(tmpDir, v))
			}
			if tc.sizeMB != "" {
				t.Setenv("OSDEP_TRACE_MAX_SIZE_MB", tc.sizeMB)
			}

			stdout, _, err := runRoot(t, "-o", "json", "trace", "handshake", "done")
			require.NoError(t, err)

			var result TraceResult
			require.NoError(t, json.Unmarshal([]byte(stdout), &result))
			path := filepath.Join(tmpDir, tc.file)
			assert.Equal(t, string(tc.want), result.Destination)
			assert.Equal(t, path, result.Path)

			data, err := os.ReadFile(path) //#nosec G304 -- path is constructed from test temp dir
			require.NoError(t, err)
			assert.Equal(t, "handshake done\n", string(data))
		})
	}
}

func TestRootCmd_OsdepEnvReachesPlatform(t *testing.T) {
	tmpDir := isolateEnv(t)
	t.Setenv("OSDEP_FILELOAD_POOL_LIMIT", "4")

	path := filepath.Join(tmpDir, "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("more than four bytes"), 0o600))

	_, _, err := runRoot(t, "load", path)
	require.ErrorIs(t, err, errors.ErrMemoryFailure)
	assert.Equal(t, ExitError, ExitCodeForError(err))

	var hint bytes.Buffer
	writeErrorHint(&hint, err)
	assert.Contains(t, hint.String(), "fileload.pool_limit")
}

func TestRootCmd_LogLevel(t *testing.T) {
	tests := []struct {
		args []string
		want zerolog.Level
	}{
		{[]string{"time", "--samples", "1"}, zerolog.InfoLevel},
		{[]string{"-v", "time", "--samples", "1"}, zerolog.DebugLevel},
		{[]string{"-q", "time", "--samples", "1"}, zerolog.WarnLevel},
	}

	for _, tc := range tests {
		t.Run(tc.want.String(), func(t *testing.T) {
			isolateEnv(t)

			_, _, err := runRoot(t, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, GetLogger().GetLevel())
		})
	}
}

func TestExecute_Version(t *testing.T) {
	isolateEnv(t)

	// Execute reads os.Args.
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"osdep", "--version"}

	require.NoError(t, Execute(context.Background(), BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "today"}))
}

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3 (commit: abc1234, built: 2026-10-19)",
		formatVersion(BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2026-10-19"}))
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
}

func TestWriteErrorHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "memory failure suggests raising the pool limit",
			err:  errors.Wrap(errors.ErrMemoryFailure, "load cert.pem"),
			want: "Hint: Raise fileload.pool_limit or load a smaller file.\n",
		},
		{
			name: "invalid config points at config show",
			err:  errors.Wrap(errors.ErrConfigInvalid, "entropy.max_reads"),
			want: "Hint: Run 'osdep config show' and correct the reported key.\n",
		},
		{
			name: "short fill names the device",
			err:  errors.Classify(errors.ErrPlatformFailure, errors.ErrShortFill),
			want: "Hint: Check that /dev/urandom is readable and not exhausted.\n",
		},
		{
			name: "no action prints nothing",
			err:  errors.ErrArgumentFailure,
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := new(bytes.Buffer)
			writeErrorHint(buf, tc.err)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}
