//go:build !linux

package entropy

import "github.com/mrz1836/osdep/internal/constants"

// preferredOpener maps the getrandom setting to the default device where
// the syscall does not exist.
func preferredOpener(name string) Opener {
	if name == "" || name == constants.PreferredGetrandom {
		return DeviceOpener(constants.DefaultPreferredDevice, true)
	}
	return DeviceOpener(name, true)
}
