package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// PageText is one cached OCR result.
type PageText struct {
	FileHash   string
	Page       int
	Engine     string
	SourcePath string
	Text       string
	Status     constants.PageStatus
	Error      string
	DocType    string
	UpdatedAt  time.Time
}

type PageTextRepository interface {
	// Get returns the cached text for a page, or common.ErrNotFound when the
	// page has no usable entry. Failed entries are not returned.
	Get(ctx context.Context, fileHash string, page int, engine string) (*PageText, error)
	SaveText(ctx context.Context, fileHash string, page int, engine, sourcePath, text string) error
	MarkParsed(ctx context.Context, fileHash string, page int, engine, docType string) error
	MarkFailed(ctx context.Context, fileHash string, page int, engine, sourcePath string, cause error) error
	ListBySource(ctx context.Context, sourcePath string) ([]*PageText, error)
}

type pageTextRepo struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewPageTextRepository(db *sql.DB, logger *slog.Logger) PageTextRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &pageTextRepo{db: db, logger: logger, now: time.Now}
}

func (r *pageTextRepo) Get(ctx context.Context, fileHash string, page int, engine string) (*PageText, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT file_hash, page, engine, source_path, text, status, error, doc_type, updated_at
		FROM page_text
		WHERE file_hash = ? AND page = ? AND engine = ? AND status != ?`,
		fileHash, page, engine, string(constants.PageStatusFailed))
	pt, err := scanPageText(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to get page text", "file_hash", fileHash, "page", page, "error", err)
		return nil, err
	}
	return pt, nil
}

func (r *pageTextRepo) SaveText(ctx context.Context, fileHash string, page int, engine, sourcePath, text string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO page_text (file_hash, page, engine, source_path, text, status, error, doc_type, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '', '', ?)
		ON CONFLICT (file_hash, page, engine) DO UPDATE SET
			source_path = excluded.source_path,
			text = excluded.text,
			status = excluded.status,
			error = '',
			updated_at = excluded.updated_at`,
		fileHash, page, engine, sourcePath, text, string(constants.PageStatusOCROK), r.stamp())
	if err != nil {
		r.logger.Error("failed to save page text", "file_hash", fileHash, "page", page, "error", err)
	}
	return err
}

func (r *pageTextRepo) MarkParsed(ctx context.Context, fileHash string, page int, engine, docType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE page_text SET status = ?, doc_type = ?, updated_at = ?
		WHERE file_hash = ? AND page = ? AND engine = ?`,
		string(constants.PageStatusParsed), docType, r.stamp(), fileHash, page, engine)
	if err != nil {
		r.logger.Error("failed to mark page parsed", "file_hash", fileHash, "page", page, "error", err)
	}
	return err
}

func (r *pageTextRepo) MarkFailed(ctx context.Context, fileHash string, page int, engine, sourcePath string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO page_text (file_hash, page, engine, source_path, text, status, error, doc_type, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?, '', ?)
		ON CONFLICT (file_hash, page, engine) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		fileHash, page, engine, sourcePath, string(constants.PageStatusFailed), msg, r.stamp())
	if err != nil {
		r.logger.Error("failed to mark page failed", "file_hash", fileHash, "page", page, "error", err)
	}
	return err
}

func (r *pageTextRepo) ListBySource(ctx context.Context, sourcePath string) ([]*PageText, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT file_hash, page, engine, source_path, text, status, error, doc_type, updated_at
		FROM page_text
		WHERE source_path = ?
		ORDER BY page, engine`, sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*PageText
	for rows.Next() {
		pt, err := scanPageText(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *pageTextRepo) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPageText(s scanner) (*PageText, error) {
	var (
		pt        PageText
		status    string
		updatedAt string
	)
	if err := s.Scan(&pt.FileHash, &pt.Page, &pt.Engine, &pt.SourcePath, &pt.Text, &status, &pt.Error, &pt.DocType, &updatedAt); err != nil {
		return nil, err
	}
	pt.Status = constants.PageStatus(status)
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		pt.UpdatedAt = ts
	}
	return &pt, nil
}
