// Package constants provides centralized constant values used throughout osdep.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

// Environment variables that select the trace sink. The overwrite variable
// wins when both are set.
const (
	// EnvTraceFile names a trace file that is truncated on open.
	EnvTraceFile = "PSCORE_DEBUG_FILE"

	// EnvTraceFileAppend names a trace file that is appended to.
	EnvTraceFileAppend = "PSCORE_DEBUG_FILE_APPEND"

	// EnvPrefix is the viper prefix for every other configuration key.
	EnvPrefix = "OSDEP"
)

// Entropy source defaults.
const (
	// MaxRandReads is the sanity bound on interrupted reads per fill phase.
	MaxRandReads = 1024

	// DefaultPreferredDevice may report EAGAIN when the pool is low.
	DefaultPreferredDevice = "/dev/random"

	// DefaultGuaranteedDevice always satisfies a read eventually.
	DefaultGuaranteedDevice = "/dev/urandom"

	// PreferredGetrandom selects getrandom(GRND_NONBLOCK) as the preferred source.
	PreferredGetrandom = "getrandom"
)

// File loading defaults.
const (
	// FileChunkSize is the read size used when loading a file into a buffer.
	FileChunkSize = 512
)

// Mutex defaults.
const (
	// LockFileExt is appended to shared mutex names to form the lock file name.
	LockFileExt = ".lock"

	// AbortExitCode is the exit status used when a lock primitive fails,
	// matching a process killed by SIGABRT.
	AbortExitCode = 134
)

// Time conversion factors.
const (
	MicrosPerSecond = 1_000_000
	NanosPerSecond  = 1_000_000_000
	NanosPerMilli   = 1_000_000
	NanosPerMicro   = 1_000
	MicrosPerMilli  = 1_000
	MillisPerSecond = 1_000
)
