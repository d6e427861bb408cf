//go:build haltonerror

package platform

const haltOnError = true
