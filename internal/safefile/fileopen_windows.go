//go:build windows

package safefile

import (
	"io/fs"
	"os"
)

// createTemp creates a new temp file next to the destination.
// On Windows, O_NOFOLLOW is not available; O_EXCL still refuses an existing name.
func createTemp(path string, perm fs.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
}
