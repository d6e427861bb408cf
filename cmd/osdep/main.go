// Package main provides the entry point for the osdep CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/osdep/internal/cli"
	"github.com/mrz1836/osdep/internal/signal"
	"github.com/mrz1836/osdep/internal/trace"
)

// Set via ldflags at build time.
var (
	version = "dev"     //nolint:gochecknoglobals // Set by ldflags
	commit  = "none"    //nolint:gochecknoglobals // Set by ldflags
	date    = "unknown" //nolint:gochecknoglobals // Set by ldflags
)

func main() {
	h := signal.NewHandler(context.Background())

	err := cli.Execute(h.Context(), cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	h.Stop()
	_ = trace.Process().Close()

	if code, interrupted := h.ExitCode(); interrupted {
		os.Exit(code)
	}
	os.Exit(cli.ExitCodeForError(err))
}
