//go:build !windows

package state

import "syscall"

// flockLock takes an exclusive advisory lock on fd.
func flockLock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX)
}

// flockUnlock releases the advisory lock on fd.
func flockUnlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
