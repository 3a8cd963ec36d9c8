// Package safefile reads and replaces whole documents on disk.
//
// Replacement defaults to writing a sibling temp file and renaming it over the
// destination, so a failure mid-write leaves the previous document intact.
package safefile

import (
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hpungsan/fbz/internal/errors"
)

// defaultPerm is used for documents that did not exist before the write.
const defaultPerm fs.FileMode = 0644

// Mode selects how Write replaces the destination.
type Mode int

const (
	ModeAtomic Mode = iota // temp file + rename
	ModeDirect             // truncate and write in place
)

// ReadAll reads the whole file at path. If max > 0, files larger than max
// fail with DOCUMENT_TOO_LARGE and nothing is returned.
func ReadAll(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewIOFailure("stat", err)
	}
	if info.IsDir() {
		return nil, errors.NewIOFailure("read", fmt.Errorf("%s is a directory", path))
	}
	if max > 0 && info.Size() > max {
		return nil, errors.NewDocumentTooLarge(max, info.Size())
	}

	var r io.Reader = f
	if max > 0 {
		// The file may grow between Stat and read.
		r = io.LimitReader(f, max+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOFailure("read", err)
	}
	if max > 0 && int64(len(data)) > max {
		return nil, errors.NewDocumentTooLarge(max, int64(len(data)))
	}
	return data, nil
}

// WriteBytes replaces path with data.
func WriteBytes(path string, mode Mode, data []byte) error {
	return Write(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write replaces path with whatever fn writes. Errors returned by fn are
// passed through when they are already FbzErrors and reported as IO_FAILURE
// otherwise.
func Write(path string, mode Mode, fn func(w io.Writer) error) error {
	target, err := resolveTarget(path)
	if err != nil {
		return err
	}
	if mode == ModeDirect {
		return writeDirect(target, fn)
	}
	return writeAtomic(target, fn)
}

// resolveTarget follows a symlinked destination so the rename replaces the
// link target rather than the link itself.
func resolveTarget(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		return "", errors.NewIOFailure("stat", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return path, nil
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.NewIOFailure("resolve symlink", err)
	}
	return resolved, nil
}

func writeDirect(path string, fn func(w io.Writer) error) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, targetPerm(path))
	if err != nil {
		return openError(path, err)
	}
	if err := fn(file); err != nil {
		file.Close()
		return writeError(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewIOFailure("close", err)
	}
	return nil
}

func writeAtomic(path string, fn func(w io.Writer) error) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	dir, base := filepath.Split(path)
	tempPath := filepath.Join(dir, "."+base+"."+hex.EncodeToString(randBytes)+".tmp")

	perm := targetPerm(path)
	file, err := createTemp(tempPath, perm)
	if err != nil {
		var fErr *errors.FbzError
		if stderrors.As(err, &fErr) {
			return fErr
		}
		return errors.NewIOFailure("create", err)
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	// createTemp is subject to umask; match the file being replaced.
	if err := file.Chmod(perm); err != nil {
		return errors.NewIOFailure("chmod", err)
	}

	if err := fn(file); err != nil {
		return writeError(err)
	}

	if err := file.Sync(); err != nil {
		return errors.NewIOFailure("sync", err)
	}

	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewIOFailure("close", err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewIOFailure("rename", err)
	}

	success = true
	return nil
}

// targetPerm keeps the permission bits of an existing destination.
func targetPerm(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return defaultPerm
}

func openError(path string, err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.NewFileNotFound(path)
	}
	return errors.NewIOFailure("open", err)
}

func writeError(err error) error {
	var fErr *errors.FbzError
	if stderrors.As(err, &fErr) {
		return fErr
	}
	return errors.NewIOFailure("write", err)
}
