//go:build unix

package flock

import "syscall"

// Exclusive takes an exclusive lock on the descriptor, erroring immediately
// when another process already holds it.
func Exclusive(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_EX|syscall.LOCK_NB)
}

// Unlock releases a lock taken by Exclusive.
func Unlock(fd uintptr) error {
	return syscall.Flock(int(fd), syscall.LOCK_UN)
}
