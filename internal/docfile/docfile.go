// Package docfile routes document reads and writes by path suffix: raw .fb2
// files go straight to disk, .fbz and .fb2.zip files go through the archive
// codec, and everything else is rejected before the filesystem is touched.
package docfile

import (
	"strings"

	"github.com/hpungsan/fbz/internal/archive"
	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/safefile"
)

// Kind classifies a document path.
type Kind string

const (
	KindRaw         Kind = "fb2"
	KindArchive     Kind = "fbz"
	KindUnsupported Kind = "unsupported"
)

// Recognized suffixes. Matching is exact on the trailing characters.
const (
	SuffixFB2    = ".fb2"
	SuffixFBZ    = ".fbz"
	SuffixFB2Zip = ".fb2.zip"
)

// Classify returns the kind of path by suffix. Case-sensitive unless
// caseInsensitive is set.
func Classify(path string, caseInsensitive bool) Kind {
	if caseInsensitive {
		path = strings.ToLower(path)
	}
	switch {
	case strings.HasSuffix(path, SuffixFB2):
		return KindRaw
	case strings.HasSuffix(path, SuffixFBZ), strings.HasSuffix(path, SuffixFB2Zip):
		return KindArchive
	default:
		return KindUnsupported
	}
}

// Router reads and writes documents according to their kind.
type Router struct {
	maxBytes        int64
	caseInsensitive bool
	mode            safefile.Mode
}

// NewRouter creates a Router from configuration. A nil cfg uses defaults.
func NewRouter(cfg *config.Config) *Router {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	mode := safefile.ModeAtomic
	if cfg.DirectSave {
		mode = safefile.ModeDirect
	}
	return &Router{
		maxBytes:        cfg.MaxDocumentBytes,
		caseInsensitive: cfg.CaseInsensitiveSuffixes,
		mode:            mode,
	}
}

// Classify classifies path with the router's case rule.
func (r *Router) Classify(path string) Kind {
	return Classify(path, r.caseInsensitive)
}

// Read returns the document bytes stored at path.
func (r *Router) Read(path string) ([]byte, error) {
	switch r.Classify(path) {
	case KindRaw:
		return safefile.ReadAll(path, r.maxBytes)
	case KindArchive:
		return archive.Extract(path, r.maxBytes)
	default:
		return nil, errors.NewUnsupportedFormat(path)
	}
}

// Write stores content at path, fully replacing any existing file.
func (r *Router) Write(path, content string) error {
	switch r.Classify(path) {
	case KindRaw:
		return safefile.WriteBytes(path, r.mode, []byte(content))
	case KindArchive:
		return archive.Pack(path, content, archive.Options{Direct: r.mode == safefile.ModeDirect})
	default:
		return errors.NewUnsupportedFormat(path)
	}
}
