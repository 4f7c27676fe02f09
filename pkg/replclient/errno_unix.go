//go:build unix

package replclient

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Negative-errno return codes, per spec.md §4.4 ("return value is a
// negative errno (POSIX) ... code").
const (
	errEINVAL  int32 = -int32(unix.EINVAL)
	errELIBBAD int32 = -int32(unix.ELIBBAD) // used here to flag an unrecognized VFSCall variant
)

// rcOf converts a Go error from an os.*/unix.* call into a negative
// errno, or 0 on success. errors.As unwraps os.PathError/os.LinkError
// automatically to reach the underlying syscall.Errno.
func rcOf(err error) int32 {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return -int32(errno)
	}
	return errEINVAL
}
