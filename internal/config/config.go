// Package config provides configuration management for osdep with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. Environment variables (PSCORE_DEBUG_FILE*, then OSDEP_* prefix)
//  2. Project config (.osdep/config.yaml)
//  3. Global config (~/.osdep/config.yaml)
//  4. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import any component package.
package config

import "time"

// Config is the root configuration structure for osdep.
type Config struct {
	// Trace selects where diagnostic output goes.
	Trace TraceConfig `yaml:"trace" mapstructure:"trace"`

	// Time contains settings for clock sampling in the CLI.
	Time TimeConfig `yaml:"time" mapstructure:"time"`

	// Entropy selects the preferred and guaranteed randomness sources.
	Entropy EntropyConfig `yaml:"entropy" mapstructure:"entropy"`

	// Mutex contains settings for process-shared locks.
	Mutex MutexConfig `yaml:"mutex" mapstructure:"mutex"`

	// FileLoad contains settings for whole-file loading.
	FileLoad FileLoadConfig `yaml:"fileload" mapstructure:"fileload"`
}

// TraceConfig selects the trace sink. At most one of File and AppendFile is
// honored; File wins when both are set.
type TraceConfig struct {
	// File is opened truncating. Bound to PSCORE_DEBUG_FILE.
	File string `yaml:"file" mapstructure:"file"`

	// AppendFile is opened appending. Bound to PSCORE_DEBUG_FILE_APPEND.
	AppendFile string `yaml:"append_file" mapstructure:"append_file"`

	// MaxSizeMB enables size-based rotation of AppendFile when positive.
	// Default: 0 (no rotation)
	MaxSizeMB int `yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated append files to keep.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// TimeConfig controls how the CLI samples the clock.
type TimeConfig struct {
	// SampleInterval is the pause between consecutive samples.
	// Default: 100ms
	SampleInterval time.Duration `yaml:"sample_interval" mapstructure:"sample_interval"`
}

// EntropyConfig names the two randomness sources.
type EntropyConfig struct {
	// Preferred is a device path, or "getrandom" for the non-blocking
	// getrandom syscall on Linux. It may legitimately report EAGAIN.
	// Default: /dev/random
	Preferred string `yaml:"preferred" mapstructure:"preferred"`

	// Guaranteed is a device path that always satisfies reads eventually.
	// Default: /dev/urandom
	Guaranteed string `yaml:"guaranteed" mapstructure:"guaranteed"`

	// MaxReads bounds interrupted reads per fill phase.
	// Default: 1024, Valid range: 1-1048576
	MaxReads int `yaml:"max_reads" mapstructure:"max_reads"`
}

// MutexConfig controls process-shared locks.
type MutexConfig struct {
	// SharedDir holds lock files backing process-shared mutexes.
	// Default: empty, meaning <os temp dir>/osdep-locks
	SharedDir string `yaml:"shared_dir" mapstructure:"shared_dir"`
}

// FileLoadConfig controls whole-file loading.
type FileLoadConfig struct {
	// ChunkSize is the size of each read.
	// Default: 512, Valid range: 1-1048576
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`

	// PoolLimit caps bytes outstanding in the load pool. Zero means unbounded.
	PoolLimit int64 `yaml:"pool_limit" mapstructure:"pool_limit"`
}
