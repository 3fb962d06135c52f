package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/constants"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

type cachedPage struct {
	Page      int                  `json:"page"`
	Engine    string               `json:"engine"`
	Status    constants.PageStatus `json:"status"`
	Chars     int                  `json:"chars"`
	DocType   string               `json:"doc_type,omitempty"`
	Error     string               `json:"error,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func newCacheCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cache <pdf>",
		Short: "Show the cached OCR state of each page of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			if cfg.Paths.CacheDB == "" {
				return common.NewAppError(common.CodeConfig, "paths.cache_db is not set", common.ErrConfig)
			}
			ctx := cmd.Context()
			db, err := repository.Open(ctx, cfg.Paths.CacheDB, logger)
			if err != nil {
				return err
			}
			defer repository.Close(db, logger)

			return writeCachedPages(ctx, os.Stdout, repository.NewPageTextRepository(db, logger), args[0])
		},
	}
}

// writeCachedPages prints the cache rows recorded for path as JSON. Rows are
// stored under the path the batch saw, so the absolute form is tried when
// the given one has none.
func writeCachedPages(ctx context.Context, w io.Writer, repo repository.PageTextRepository, path string) error {
	list, err := repo.ListBySource(ctx, path)
	if err != nil {
		return common.WrapError(err, "list cached pages")
	}
	if len(list) == 0 {
		if abs, absErr := filepath.Abs(path); absErr == nil && abs != path {
			if list, err = repo.ListBySource(ctx, abs); err != nil {
				return common.WrapError(err, "list cached pages")
			}
		}
	}

	out := make([]cachedPage, 0, len(list))
	for _, pt := range list {
		out = append(out, cachedPage{
			Page:      pt.Page,
			Engine:    pt.Engine,
			Status:    pt.Status,
			Chars:     len([]rune(pt.Text)),
			DocType:   pt.DocType,
			Error:     pt.Error,
			UpdatedAt: pt.UpdatedAt,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
