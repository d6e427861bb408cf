// Package logging provides logging utilities including key material filtering.
// This package contains hooks and writers for zerolog that keep random bytes,
// private keys and passphrases out of log files.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns contains compiled regular expressions for detecting key material.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// PEM private key blocks, header to footer
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`),

	// A private key header whose block was cut off
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),

	// Hex runs of 128 bits or more (entropy dumps, session keys, seeds)
	regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`),

	// Key, seed or passphrase assignments
	regexp.MustCompile(`(?i)(private[_-]?key|secret|seed|passphrase|password|psk)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// Long base64 values assigned to key-like names
	regexp.MustCompile(`(?i)(key|token|nonce)\s*[:=]\s*["']?[a-zA-Z0-9+/]{32,}={0,2}["']?`),
}

// sensitiveFieldNames contains field names that should always have their values redacted.
// Case-insensitive matching is performed.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // Package-level patterns for reuse
	"entropy_hex",
	"random_bytes",
	"private_key",
	"privatekey",
	"private-key",
	"secret",
	"seed",
	"passphrase",
	"password",
	"psk",
	"session_key",
	"master_secret",
}

// SensitiveDataHook is a zerolog hook that flags log entries whose message
// carries key material. Zerolog does not let a hook rewrite the message, so
// the hook marks the event and FilteringWriter does the redaction.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements the zerolog.Hook interface.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData checks if a string contains any sensitive data patterns.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every match of a sensitive pattern with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName checks if a field name indicates key material.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// RedactIfSensitive returns [REDACTED] if the field name indicates key material,
// otherwise returns the value with sensitive patterns filtered out.
//
// Usage:
//
//	log.Debug().Str("path", logging.RedactIfSensitive("path", path)).Msg("loaded file")
func RedactIfSensitive(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer and filters sensitive data from output.
// The CLI wraps its log file with it so key material never reaches disk.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter that wraps the given writer.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer, filtering sensitive data before writing.
// It reports the original length so callers never see a short write.
func (fw *FilteringWriter) Write(p []byte) (n int, err error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err = fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
