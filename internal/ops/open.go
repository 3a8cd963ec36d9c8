package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/docfile"
	"github.com/hpungsan/fbz/internal/fb2text"
	"github.com/hpungsan/fbz/internal/logging"
)

// OpenFileInput contains parameters for the OpenFile operation.
type OpenFileInput struct {
	Path       string // required; .fb2, .fbz or .fb2.zip
	DecodeText bool   // also return the content decoded to UTF-8
}

// OpenFileOutput contains the result of the OpenFile operation.
// Content is the document exactly as stored (base64 in JSON).
type OpenFileOutput struct {
	Path     string  `json:"path"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
	Hash     string  `json:"hash"`
	Content  []byte  `json:"content,omitempty"`
	Text     *string `json:"text,omitempty"`
	Encoding string  `json:"encoding,omitempty"`
}

// OpenFile reads a document. Archived documents are unpacked; raw documents
// are returned byte for byte. Nothing is returned on failure.
func OpenFile(ctx context.Context, database *sql.DB, cfg *config.Config, input OpenFileInput) (*OpenFileOutput, error) {
	path, err := requirePath(input.Path, "path")
	if err != nil {
		return nil, err
	}

	router := docfile.NewRouter(cfg)
	data, err := router.Read(path)
	if err != nil {
		logging.FromContext(ctx).Debug("open failed", "path", path, "error", err)
		return nil, err
	}

	out := &OpenFileOutput{
		Path:    path,
		Format:  string(router.Classify(path)),
		Size:    int64(len(data)),
		Hash:    contentHash(data),
		Content: data,
	}

	if input.DecodeText {
		text, err := fb2text.Decode(data)
		if err != nil {
			return nil, err
		}
		out.Text = &text.Content
		out.Encoding = text.Encoding
	}

	logging.FromContext(ctx).Info("document opened", "path", path, "format", out.Format, "size", out.Size)
	record(ctx, database, cfg, recordOpened, path, out.Format, out.Size, out.Hash, time.Now())
	return out, nil
}

// InspectInput contains parameters for the Inspect operation.
type InspectInput struct {
	Path string
}

// Inspect reads a document and reports its format, size, hash and detected
// encoding without returning the content. It is not recorded as recent.
func Inspect(ctx context.Context, cfg *config.Config, input InspectInput) (*OpenFileOutput, error) {
	path, err := requirePath(input.Path, "path")
	if err != nil {
		return nil, err
	}

	router := docfile.NewRouter(cfg)
	data, err := router.Read(path)
	if err != nil {
		return nil, err
	}

	_, encoding, err := fb2text.Detect(data)
	if err != nil {
		return nil, err
	}

	return &OpenFileOutput{
		Path:     path,
		Format:   string(router.Classify(path)),
		Size:     int64(len(data)),
		Hash:     contentHash(data),
		Encoding: encoding,
	}, nil
}
