package config

import (
	"github.com/mrz1836/osdep/internal/errors"
)

// maxTunable bounds the integer tunables (retry bound, chunk size).
const maxTunable = 1 << 20

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - entropy.guaranteed must not be empty
//   - entropy.max_reads must be between 1 and 1048576
//   - fileload.chunk_size must be between 1 and 1048576
//   - fileload.pool_limit and trace sizes must not be negative
//   - time.sample_interval must not be negative
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if err := validateTraceConfig(&cfg.Trace); err != nil {
		return err
	}
	if err := validateEntropyConfig(&cfg.Entropy); err != nil {
		return err
	}
	if err := validateFileLoadConfig(&cfg.FileLoad); err != nil {
		return err
	}
	if cfg.Time.SampleInterval < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"time.sample_interval must not be negative, got %s", cfg.Time.SampleInterval)
	}
	return nil
}

func validateTraceConfig(cfg *TraceConfig) error {
	if cfg.MaxSizeMB < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"trace.max_size_mb must not be negative, got %d", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"trace.max_backups must not be negative, got %d", cfg.MaxBackups)
	}
	return nil
}

func validateEntropyConfig(cfg *EntropyConfig) error {
	if cfg.Guaranteed == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "entropy.guaranteed must not be empty")
	}
	if cfg.MaxReads < 1 || cfg.MaxReads > maxTunable {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"entropy.max_reads must be between 1 and %d, got %d", maxTunable, cfg.MaxReads)
	}
	return nil
}

func validateFileLoadConfig(cfg *FileLoadConfig) error {
	if cfg.ChunkSize < 1 || cfg.ChunkSize > maxTunable {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"fileload.chunk_size must be between 1 and %d, got %d", maxTunable, cfg.ChunkSize)
	}
	if cfg.PoolLimit < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid,
			"fileload.pool_limit must not be negative, got %d", cfg.PoolLimit)
	}
	return nil
}
