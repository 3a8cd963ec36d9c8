package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/fbz/internal/config"
	"github.com/hpungsan/fbz/internal/db"
	"github.com/hpungsan/fbz/internal/errors"
)

// RecentInput contains parameters for the Recent operation.
type RecentInput struct {
	Limit int // default: cfg.RecentLimit, max: MaxRecentLimit
}

// RecentOutput contains the result of the Recent operation.
type RecentOutput struct {
	Items []db.Document `json:"items"`
}

// Recent lists recently opened or saved documents, newest first.
func Recent(ctx context.Context, database *sql.DB, cfg *config.Config, input RecentInput) (*RecentOutput, error) {
	if database == nil {
		return &RecentOutput{Items: []db.Document{}}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
		if cfg != nil && cfg.RecentLimit > 0 {
			limit = cfg.RecentLimit
		}
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	items, err := db.ListRecent(ctx, database, limit)
	if err != nil {
		return nil, err
	}
	return &RecentOutput{Items: items}, nil
}

// ForgetInput contains parameters for the Forget operation.
type ForgetInput struct {
	Path string
}

// ForgetOutput contains the result of the Forget operation.
type ForgetOutput struct {
	Path    string `json:"path"`
	Removed bool   `json:"removed"`
}

// Forget removes a document from the recent list. The file itself is untouched.
func Forget(ctx context.Context, database *sql.DB, input ForgetInput) (*ForgetOutput, error) {
	path, err := requirePath(input.Path, "path")
	if err != nil {
		return nil, err
	}
	if database == nil {
		return nil, errors.NewInvalidRequest("recent documents are not available")
	}

	key := recordKey(path)
	removed, err := db.DeleteByPath(ctx, database, key)
	if err != nil {
		return nil, err
	}
	return &ForgetOutput{Path: key, Removed: removed}, nil
}
