package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errWriteFailed = errors.New("write failed")

// Test helpers build fake key material at runtime to avoid secret scanner
// false positives.
func fakeHexKey() string { return strings.Repeat("deadbeef", 4) + "00112233" }
func fakePEMKey() string {
	return "-----BEGIN " + "EC PRIVATE KEY-----\nTESTONLYxxxxxxxx\n-----END " + "EC PRIVATE KEY-----"
}
func fakePassphrase() string { return "testonly" + "passphrase1" }
func fakeB64Key() string     { return "VEVTVE9OTFl4eHh4eHh4eHh4eHh4eHh4eHh4eHh4eHg=" }

func TestContainsSensitiveData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "hex entropy dump", input: "bytes " + fakeHexKey(), expected: true},
		{name: "pem private key", input: fakePEMKey(), expected: true},
		{name: "truncated pem header", input: "-----BEGIN " + "RSA PRIVATE KEY-----", expected: true},
		{name: "passphrase assignment", input: "passphrase=" + fakePassphrase(), expected: true},
		{name: "seed assignment", input: "seed: " + fakePassphrase(), expected: true},
		{name: "base64 key", input: "key=" + fakeB64Key(), expected: true},
		{name: "short hex", input: "flags 0x1f status deadbeef", expected: false},
		{name: "uuid lock name", input: "lock 550e8400-e29b-41d4-a716-446655440000.lock", expected: false},
		{name: "public certificate", input: "-----BEGIN CERTIFICATE-----", expected: false},
		{name: "plain message", input: "entropy source opened", expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ContainsSensitiveData(tc.input))
		})
	}
}

func TestFilterSensitiveValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "hex run replaced in place",
			input:    "filled 20 bytes: " + fakeHexKey() + " ok",
			expected: "filled 20 bytes: " + RedactedValue + " ok",
		},
		{
			name:     "whole pem block replaced",
			input:    "loaded\n" + fakePEMKey() + "\ndone",
			expected: "loaded\n" + RedactedValue + "\ndone",
		},
		{
			name:     "nothing to filter",
			input:    "mutex acquired",
			expected: "mutex acquired",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, FilterSensitiveValue(tc.input))
		})
	}
}

func TestIsSensitiveFieldName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"entropy_hex", "ENTROPY_HEX", "private_key", "tls_psk", "master_secret", "seed"} {
		assert.True(t, IsSensitiveFieldName(name), name)
	}
	for _, name := range []string{"path", "bytes", "kind", "elapsed_ms"} {
		assert.False(t, IsSensitiveFieldName(name), name)
	}
}

func TestRedactIfSensitive(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RedactedValue, RedactIfSensitive("entropy_hex", "00"))
	assert.Equal(t, "/etc/ssl/cert.pem", RedactIfSensitive("path", "/etc/ssl/cert.pem"))
	assert.Equal(t, "got "+RedactedValue, RedactIfSensitive("message", "got "+fakeHexKey()))
}

func TestSensitiveDataHook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(NewSensitiveDataHook())

	logger.Info().Msg("entropy " + fakeHexKey())
	assert.Contains(t, buf.String(), `"contains_filtered_data":true`)

	buf.Reset()
	logger.Info().Msg("entropy source opened")
	assert.NotContains(t, buf.String(), "contains_filtered_data")
}

func TestFilteringWriter(t *testing.T) {
	t.Parallel()

	t.Run("redacts and reports original length", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		fw := NewFilteringWriter(&buf)

		input := []byte(`{"msg":"bytes ` + fakeHexKey() + `"}`)
		n, err := fw.Write(input)
		require.NoError(t, err)
		assert.Equal(t, len(input), n)
		assert.Equal(t, `{"msg":"bytes `+RedactedValue+`"}`, buf.String())
	})

	t.Run("zerolog through filtering writer", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := zerolog.New(NewFilteringWriter(&buf))

		logger.Debug().Str("hex", fakeHexKey()).Msg("filled")
		assert.NotContains(t, buf.String(), fakeHexKey())
		assert.Contains(t, buf.String(), RedactedValue)
	})

	t.Run("propagates write errors", func(t *testing.T) {
		t.Parallel()
		fw := NewFilteringWriter(failWriter{})
		n, err := fw.Write([]byte("x"))
		require.ErrorIs(t, err, errWriteFailed)
		assert.Equal(t, 0, n)
	})
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errWriteFailed }
