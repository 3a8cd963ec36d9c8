package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/fbz/internal/errors"
)

// Document is a recently opened or saved document.
type Document struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash"`
	OpenedAt    *int64 `json:"opened_at,omitempty"`
	SavedAt     *int64 `json:"saved_at,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// NewID generates a new ULID for a document row.
func NewID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Touch records d, inserting a row for a new path or updating the existing
// one. OpenedAt and SavedAt keep their previous values when d leaves them nil.
// A new row gets d.ID (generated if empty); an existing row keeps its ID.
func Touch(ctx context.Context, db *sql.DB, d *Document) error {
	if d.ID == "" {
		id, err := NewID(time.Unix(d.UpdatedAt, 0))
		if err != nil {
			return errors.NewInternal(err)
		}
		d.ID = id
	}

	query := `
		INSERT INTO documents (id, path, format, size, content_hash, opened_at, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			format       = excluded.format,
			size         = excluded.size,
			content_hash = excluded.content_hash,
			opened_at    = COALESCE(excluded.opened_at, documents.opened_at),
			saved_at     = COALESCE(excluded.saved_at, documents.saved_at),
			updated_at   = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		d.ID, d.Path, d.Format, d.Size, d.ContentHash,
		toNullInt64(d.OpenedAt), toNullInt64(d.SavedAt), d.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByPath returns the recorded document for path.
func GetByPath(ctx context.Context, db *sql.DB, path string) (*Document, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, path, format, size, content_hash, opened_at, saved_at, updated_at
		FROM documents
		WHERE path = ?
	`, path)

	d, err := scanDocument(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// ListRecent returns up to limit documents, most recently touched first.
func ListRecent(ctx context.Context, db *sql.DB, limit int) ([]Document, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, path, format, size, content_hash, opened_at, saved_at, updated_at
		FROM documents
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return docs, nil
}

// DeleteByPath removes the record for path. Reports whether a row was removed.
func DeleteByPath(ctx context.Context, db *sql.DB, path string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// Trim keeps the keep most recent documents and deletes the rest.
// Returns the number of rows deleted.
func Trim(ctx context.Context, db *sql.DB, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE id NOT IN (
			SELECT id FROM documents
			ORDER BY updated_at DESC, id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(s rowScanner) (*Document, error) {
	var d Document
	var openedAt, savedAt sql.NullInt64
	if err := s.Scan(&d.ID, &d.Path, &d.Format, &d.Size, &d.ContentHash, &openedAt, &savedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.OpenedAt = fromNullInt64(openedAt)
	d.SavedAt = fromNullInt64(savedAt)
	return &d, nil
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
