package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS page_text (
	file_hash   TEXT    NOT NULL,
	page        INTEGER NOT NULL,
	engine      TEXT    NOT NULL,
	source_path TEXT    NOT NULL,
	text        TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	doc_type    TEXT    NOT NULL DEFAULT '',
	updated_at  TEXT    NOT NULL,
	PRIMARY KEY (file_hash, page, engine)
);
CREATE INDEX IF NOT EXISTS idx_page_text_source ON page_text(source_path);
`

// Open opens (creating if needed) the SQLite cache database at path and
// applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.WrapError(err, "create cache dir")
		}
	}

	logger.Info("opening cache database", "path", path)
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		logger.Error("failed to open cache database", "path", path, "error", err)
		return nil, err
	}
	// one writer; the batch is sequential anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		logger.Error("failed to apply cache schema", "error", err)
		return nil, common.WrapError(err, "apply schema")
	}
	return db, nil
}

// Close closes the database and logs the outcome.
func Close(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close cache database", "error", err)
		return
	}
	logger.Info("cache database closed")
}

// HealthCheck pings the database.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}
