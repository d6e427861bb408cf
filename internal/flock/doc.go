// Package flock provides cross-platform advisory file locks.
//
// Process-shared mutexes are built on these locks: every process that opens
// the same lock file and takes the exclusive lock serializes with every
// other. Exclusive fails immediately when the lock is held; Wait blocks.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
//	if err := flock.Wait(file.Fd()); err != nil {
//	    // lock primitive failed
//	}
//	defer flock.Unlock(file.Fd())
package flock
