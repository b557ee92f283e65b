//go:build unix

package localstore

import (
	"os"
	"syscall"
)

// lock blocks until an exclusive flock is held on f.
func lock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func unlock(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
