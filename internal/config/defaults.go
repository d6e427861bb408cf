package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mrz1836/osdep/internal/constants"
)

// DefaultConfig returns a new Config with default values.
// These defaults are the base layer that config files and environment
// variables override.
func DefaultConfig() *Config {
	return &Config{
		Trace: TraceConfig{
			// MaxBackups only matters once MaxSizeMB enables rotation.
			MaxBackups: constants.LogMaxBackups,
		},
		Time: TimeConfig{
			SampleInterval: 100 * time.Millisecond,
		},
		Entropy: EntropyConfig{
			Preferred:  constants.DefaultPreferredDevice,
			Guaranteed: constants.DefaultGuaranteedDevice,
			MaxReads:   constants.MaxRandReads,
		},
		FileLoad: FileLoadConfig{
			ChunkSize: constants.FileChunkSize,
		},
	}
}

// setDefaults registers DefaultConfig with viper so every key is known to
// AutomaticEnv and Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("trace.file", d.Trace.File)
	v.SetDefault("trace.append_file", d.Trace.AppendFile)
	v.SetDefault("trace.max_size_mb", d.Trace.MaxSizeMB)
	v.SetDefault("trace.max_backups", d.Trace.MaxBackups)

	v.SetDefault("time.sample_interval", d.Time.SampleInterval.String())

	v.SetDefault("entropy.preferred", d.Entropy.Preferred)
	v.SetDefault("entropy.guaranteed", d.Entropy.Guaranteed)
	v.SetDefault("entropy.max_reads", d.Entropy.MaxReads)

	v.SetDefault("mutex.shared_dir", d.Mutex.SharedDir)

	v.SetDefault("fileload.chunk_size", d.FileLoad.ChunkSize)
	v.SetDefault("fileload.pool_limit", d.FileLoad.PoolLimit)
}

// SharedLockDir returns the directory for process-shared lock files,
// resolving the empty default to a directory under os.TempDir.
func (c MutexConfig) SharedLockDir() string {
	if c.SharedDir != "" {
		return c.SharedDir
	}
	return filepath.Join(os.TempDir(), "osdep-"+constants.LocksDir)
}
