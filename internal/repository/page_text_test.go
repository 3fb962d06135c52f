package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

func openTestDB(t *testing.T) PageTextRepository {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "cache", "ocr_cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, HealthCheck(ctx, db, time.Second))
	return NewPageTextRepository(db, nil)
}

func TestPageText_SaveGetAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	_, err := repo.Get(ctx, "abc", 1, "typhoon")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, repo.SaveText(ctx, "abc", 1, "typhoon", "/in/a.pdf", "เลขที่ INV-1"))
	got, err := repo.Get(ctx, "abc", 1, "typhoon")
	require.NoError(t, err)
	assert.Equal(t, "เลขที่ INV-1", got.Text)
	assert.Equal(t, constants.PageStatusOCROK, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())

	_, err = repo.Get(ctx, "abc", 1, "ollama")
	assert.True(t, errors.Is(err, common.ErrNotFound), "engine is part of the key")

	require.NoError(t, repo.MarkParsed(ctx, "abc", 1, "typhoon", "invoice"))
	got, err = repo.Get(ctx, "abc", 1, "typhoon")
	require.NoError(t, err)
	assert.Equal(t, constants.PageStatusParsed, got.Status)
	assert.Equal(t, "invoice", got.DocType)

	require.NoError(t, repo.SaveText(ctx, "abc", 1, "typhoon", "/in/a.pdf", "updated"))
	got, err = repo.Get(ctx, "abc", 1, "typhoon")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Text)
}

func TestPageText_FailedEntriesAreNotServed(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t)

	require.NoError(t, repo.MarkFailed(ctx, "h", 2, "ollama", "/in/b.pdf", errors.New("timeout")))
	_, err := repo.Get(ctx, "h", 2, "ollama")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	list, err := repo.ListBySource(ctx, "/in/b.pdf")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, constants.PageStatusFailed, list[0].Status)
	assert.Equal(t, "timeout", list[0].Error)

	require.NoError(t, repo.SaveText(ctx, "h", 2, "ollama", "/in/b.pdf", "ok now"))
	got, err := repo.Get(ctx, "h", 2, "ollama")
	require.NoError(t, err)
	assert.Equal(t, "ok now", got.Text)
	assert.Equal(t, "", got.Error)
}

func TestOpen_UnwritableDirIsWrapped(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Open(context.Background(), filepath.Join(file, "sub", "cache.db"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create cache dir: ")
	var pathErr *os.PathError
	assert.True(t, errors.As(err, &pathErr))
}
