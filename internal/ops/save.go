package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/fbz/internal/archive"
	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/docfile"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/logging"
)

// SaveFileInput contains parameters for the SaveFile operation.
type SaveFileInput struct {
	Path    string // required; .fb2, .fbz or .fb2.zip
	Content string // written as UTF-8; may be empty
}

// SaveFileOutput contains the result of the SaveFile operation.
type SaveFileOutput struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	EntryName string `json:"entry_name,omitempty"`
	Size      int64  `json:"size"`
	Hash      string `json:"hash"`
	SavedAt   int64  `json:"saved_at"`
}

// SaveFile writes content to path, replacing the existing document. Archive
// paths get a single-entry zip container.
func SaveFile(ctx context.Context, database *sql.DB, cfg *config.Config, input SaveFileInput) (*SaveFileOutput, error) {
	path, err := requirePath(input.Path, "path")
	if err != nil {
		return nil, err
	}

	router := docfile.NewRouter(cfg)
	if err := router.Write(path, input.Content); err != nil {
		logging.FromContext(ctx).Warn("save failed", "path", path, "error", err)
		return nil, err
	}

	now := time.Now()
	data := []byte(input.Content)
	out := &SaveFileOutput{
		Path:    path,
		Format:  string(router.Classify(path)),
		Size:    int64(len(data)),
		Hash:    contentHash(data),
		SavedAt: now.Unix(),
	}
	if router.Classify(path) == docfile.KindArchive {
		out.EntryName = archive.EntryName(path)
	}

	logging.FromContext(ctx).Info("document saved", "path", path, "format", out.Format, "size", out.Size)
	record(ctx, database, cfg, recordSaved, path, out.Format, out.Size, out.Hash, now)
	return out, nil
}

// ConvertInput contains parameters for the Convert operation.
type ConvertInput struct {
	Source      string
	Destination string
}

// Convert reads the document at Source and saves it at Destination, e.g. to
// turn a .fb2 into a .fbz. The content is carried over byte for byte.
func Convert(ctx context.Context, database *sql.DB, cfg *config.Config, input ConvertInput) (*SaveFileOutput, error) {
	src, err := requirePath(input.Source, "source")
	if err != nil {
		return nil, err
	}
	dst, err := requirePath(input.Destination, "destination")
	if err != nil {
		return nil, err
	}

	router := docfile.NewRouter(cfg)
	// Reject an unsupported destination before reading anything.
	if router.Classify(dst) == docfile.KindUnsupported {
		return nil, errors.NewUnsupportedFormat(dst)
	}

	data, err := router.Read(src)
	if err != nil {
		return nil, err
	}

	return SaveFile(ctx, database, cfg, SaveFileInput{Path: dst, Content: string(data)})
}
