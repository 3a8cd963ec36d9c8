//go:build !windows

package safefile

import (
	stderrors "errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hpungsan/fbz/internal/errors"
)

// createTemp creates a new temp file next to the destination. O_EXCL refuses
// to reuse an existing name, O_NOFOLLOW refuses a symlink planted at that
// name, and O_CLOEXEC prevents FD leaks across exec.
func createTemp(path string, perm fs.FileMode) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_WRONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, unix.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
