package ops

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/errors"
	"github.com/hpungsan/fbz/internal/logging"
)

// Recent list limits
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

// contentHash returns the 16 hex character xxh3 hash of a document.
func contentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// requirePath trims and validates a path argument.
func requirePath(path, field string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return path, nil
}

// recordKey is the path under which a document is remembered.
func recordKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

type recordAction int

const (
	recordOpened recordAction = iota
	recordSaved
)

// record remembers a successful open or save. Failures are logged and never
// fail the caller's operation. A nil database disables recording.
func record(ctx context.Context, database *sql.DB, cfg *config.Config, action recordAction, path, format string, size int64, hash string, at time.Time) {
	if database == nil {
		return
	}

	now := at.Unix()
	doc := &db.Document{
		Path:        recordKey(path),
		Format:      format,
		Size:        size,
		ContentHash: hash,
		UpdatedAt:   now,
	}
	if action == recordOpened {
		doc.OpenedAt = &now
	} else {
		doc.SavedAt = &now
	}

	logger := logging.FromContext(ctx)
	if err := db.Touch(ctx, database, doc); err != nil {
		logger.Warn("failed to record recent document", "path", doc.Path, "error", err)
		return
	}

	keep := DefaultRecentLimit
	if cfg != nil && cfg.RecentLimit > 0 {
		keep = cfg.RecentLimit
	}
	if _, err := db.Trim(ctx, database, keep); err != nil {
		logger.Warn("failed to trim recent documents", "error", err)
	}
}
