package wal

import (
	"os"
	"strconv"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// lockExclusive takes a non-blocking advisory exclusive lock on f, when f
// is backed by a real *os.File (an afero.OsFs handle). In-memory and other
// non-descriptor-backed filesystems silently skip locking: there is no
// cross-process invariant to protect for them.
func lockExclusive(f afero.File) error {
	osf, ok := f.(*os.File)
	if !ok {
		return nil
	}
	return unix.Flock(int(osf.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// unlock releases a lock taken by lockExclusive, ignoring files it never
// locked in the first place.
func unlock(f afero.File) {
	osf, ok := f.(*os.File)
	if !ok {
		return
	}
	unix.Flock(int(osf.Fd()), unix.LOCK_UN)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
