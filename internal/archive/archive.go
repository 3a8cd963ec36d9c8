// Package archive packs and unpacks single-entry zip containers holding one
// FictionBook document (.fbz and .fb2.zip files).
//
// A container is valid only if it holds exactly one entry and that entry is a
// file. The stored entry name is not checked on extraction.
package archive

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/safefile"
)

// Options controls how Pack replaces the destination.
type Options struct {
	// Direct truncates the destination and writes in place instead of
	// renaming a finished temp file over it.
	Direct bool

	// Modified is stamped on the entry. Zero means now.
	Modified time.Time
}

// EntryName derives the name of the single entry stored in the container at
// path: the base name without its final extension, with the extension forced
// to .fb2 when path ends in .fbz.
//
//	book.fbz     -> book.fb2
//	book.fb2.zip -> book.fb2
func EntryName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if strings.EqualFold(ext, ".fbz") {
		return stem + ".fb2"
	}
	return stem
}

// Extract returns the content of the sole entry of the zip container at path.
// If maxBytes > 0, entries larger than maxBytes fail with DOCUMENT_TOO_LARGE.
func Extract(path string, maxBytes int64) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer r.Close()
	return extract(&r.Reader, maxBytes)
}

// ExtractBytes is Extract for a container already held in memory.
func ExtractBytes(data []byte, maxBytes int64) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, openError("", err)
	}
	return extract(r, maxBytes)
}

func extract(r *zip.Reader, maxBytes int64) ([]byte, error) {
	switch n := len(r.File); {
	case n == 0:
		return nil, errors.NewArchiveEmpty()
	case n > 1:
		return nil, errors.NewArchiveMultipleEntries(n)
	}

	f := r.File[0]
	if f.FileInfo().IsDir() {
		return nil, errors.NewArchiveEntryIsDirectory(f.Name)
	}
	if maxBytes > 0 && f.UncompressedSize64 > uint64(maxBytes) {
		return nil, errors.NewDocumentTooLarge(maxBytes, int64(f.UncompressedSize64))
	}

	rc, err := f.Open()
	if err != nil {
		if stderrors.Is(err, zip.ErrAlgorithm) {
			return nil, errors.NewArchiveCorrupt("unsupported compression method", err)
		}
		return nil, errors.NewArchiveCorrupt("invalid archive file", err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if maxBytes > 0 {
		// The declared size can lie.
		src = io.LimitReader(rc, maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		if stderrors.Is(err, zip.ErrChecksum) {
			return nil, errors.NewArchiveCorrupt("archive checksum mismatch", err)
		}
		return nil, errors.NewArchiveCorrupt("invalid archive file", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.NewDocumentTooLarge(maxBytes, int64(len(data)))
	}
	return data, nil
}

// Pack writes content as the single DEFLATE entry of a new zip container at
// path, replacing whatever was there.
func Pack(path, content string, opts Options) error {
	name := EntryName(path)
	mode := safefile.ModeAtomic
	if opts.Direct {
		mode = safefile.ModeDirect
	}
	return safefile.Write(path, mode, func(w io.Writer) error {
		return Encode(w, name, []byte(content), opts.Modified)
	})
}

// Encode writes a single-entry zip container holding data under name.
func Encode(w io.Writer, name string, data []byte, modified time.Time) error {
	if modified.IsZero() {
		modified = time.Now()
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

func openError(path string, err error) error {
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.NewFileNotFound(path)
	case stderrors.Is(err, zip.ErrFormat), stderrors.Is(err, io.ErrUnexpectedEOF):
		return errors.NewArchiveCorrupt("invalid archive file", err)
	default:
		return errors.NewIOFailure("open", err)
	}
}
