package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fbz/internal/errors"
)

type testEntry struct {
	name   string
	body   string
	method uint16
}

// writeZip writes a container holding entries to dir/name and returns its path.
func writeZip(t *testing.T, dir, name string, entries ...testEntry) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		if e.body != "" {
			_, err = fw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestEntryName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"doc.fbz", "doc.fb2"},
		{"/books/doc.fbz", "doc.fb2"},
		{"doc.fb2.zip", "doc.fb2"},
		{"/books/War and Peace.fb2.zip", "War and Peace.fb2"},
		{"/books/Война и мир.fbz", "Война и мир.fb2"},
		{"DOC.FBZ", "DOC.fb2"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := EntryName(tt.path); got != tt.want {
				t.Errorf("EntryName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtract_SingleEntry(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		method uint16
	}{
		{"deflate", zip.Deflate},
		{"store", zip.Store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeZip(t, dir, tt.name+".fbz", testEntry{name: "anything.xml", body: "<FictionBook/>", method: tt.method})

			data, err := Extract(path, 0)
			require.NoError(t, err)
			require.Equal(t, "<FictionBook/>", string(data))
		})
	}
}

func TestExtract_StructuralErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		entries []testEntry
		code    errors.ErrorCode
		message string
	}{
		{
			name:    "empty",
			code:    errors.ErrArchiveEmpty,
			message: "archive is empty",
		},
		{
			name: "two files",
			entries: []testEntry{
				{name: "a.fb2", body: "a", method: zip.Deflate},
				{name: "b.fb2", body: "b", method: zip.Deflate},
			},
			code:    errors.ErrArchiveMultipleEntries,
			message: "archive contains more than one file",
		},
		{
			name:    "directory",
			entries: []testEntry{{name: "book/", method: zip.Store}},
			code:    errors.ErrArchiveEntryIsDirectory,
			message: "archive contains a directory",
		},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeZip(t, dir, strings.Repeat("x", i+1)+".fbz", tt.entries...)

			data, err := Extract(path, 0)
			require.Nil(t, data)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
			require.Equal(t, tt.message, errors.As(err).Message)
		})
	}
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.fbz")
	require.NoError(t, os.WriteFile(path, []byte("<?xml version=\"1.0\"?><FictionBook/>"), 0644))

	_, err := Extract(path, 0)
	require.True(t, errors.Is(err, errors.ErrArchiveCorrupt), "got %v", err)
}

func TestExtract_Missing(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.fbz"), 0)
	require.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)
}

func TestExtract_TooLarge(t *testing.T) {
	path := writeZip(t, t.TempDir(), "big.fbz", testEntry{name: "big.fb2", body: strings.Repeat("a", 1000), method: zip.Deflate})

	data, err := Extract(path, 100)
	require.Nil(t, data)
	require.True(t, errors.Is(err, errors.ErrDocumentTooLarge), "got %v", err)
}

func TestExtractBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, "doc.fb2", []byte("payload"), time.Time{}))

	data, err := ExtractBytes(buf.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	_, err = ExtractBytes([]byte("short"), 0)
	require.True(t, errors.Is(err, errors.ErrArchiveCorrupt), "got %v", err)
}

func TestPack_EntryLayout(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file      string
		wantEntry string
	}{
		{"doc.fbz", "doc.fb2"},
		{"doc.fb2.zip", "doc.fb2"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			require.NoError(t, Pack(path, "X", Options{}))

			r, err := zip.OpenReader(path)
			require.NoError(t, err)
			defer r.Close()

			require.Len(t, r.File, 1)
			require.Equal(t, tt.wantEntry, r.File[0].Name)
			require.Equal(t, zip.Deflate, r.File[0].Method)
		})
	}
}

func TestPack_RoundTrip(t *testing.T) {
	content := `<?xml version="1.0" encoding="utf-8"?><FictionBook><body><p>Привет</p></body></FictionBook>`

	for _, direct := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "book.fb2.zip")
		require.NoError(t, Pack(path, content, Options{Direct: direct}))

		data, err := Extract(path, 0)
		require.NoError(t, err)
		require.Equal(t, content, string(data))
	}
}

func TestPack_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := writeZip(t, dir, "book.fbz",
		testEntry{name: "a.fb2", body: "a", method: zip.Deflate},
		testEntry{name: "b.fb2", body: "b", method: zip.Deflate},
	)

	require.NoError(t, Pack(path, "fresh", Options{}))

	data, err := Extract(path, 0)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(data))
}

func TestPack_ModifiedTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.fbz")
	stamp := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, Pack(path, "X", Options{Modified: stamp}))

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	require.True(t, r.File[0].Modified.Equal(stamp), "Modified = %v, want %v", r.File[0].Modified, stamp)
}
