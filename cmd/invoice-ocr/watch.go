package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/async"
	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/ingest"
	"github.com/joseph-ayodele/invoice-ocr/internal/pipeline"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	var (
		source   string
		initial  bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process new PDFs as they land in the source folder",
		Long: "Watches the source folder and processes each new or rewritten PDF. " +
			"Changes to the vendor master reload it. The summary workbook is rewritten after every file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Paths.Source = source
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger, "")
			if err != nil {
				return err
			}
			defer a.Close()

			rows := pipeline.NewRowSet()
			summary := filepath.Join(cfg.Paths.Output, cfg.Batch.SummaryName)
			queue := async.NewProcessorQueue(func(ctx context.Context, job async.Job) error {
				return a.processor.Reprocess(ctx, job.Path, job.Force, rows, summary)
			}, logger, async.WithProcessTimeout(cfg.OCR.Timeout*10))
			defer queue.Shutdown(context.Background())

			events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.Paths.Source},
				Files:       []string{cfg.Paths.VendorMaster},
				InitialScan: initial,
				Debounce:    debounce,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			logger.Info("watch.start", "source", cfg.Paths.Source, "vendor_master", cfg.Paths.VendorMaster)

			for {
				select {
				case <-ctx.Done():
					logger.Info("watch.stop")
					return nil
				case err, ok := <-errs:
					if ok {
						logger.Warn("watch.error", "error", err)
					}
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if ev.Watched {
						reloadVendors(a, ev.Path)
						continue
					}
					_, runID := common.NewRunContext(ctx)
					if err := queue.Enqueue(ctx, async.Job{Path: ev.Path, RunID: runID}); err != nil {
						logger.Warn("watch.enqueue_failed", "path", ev.Path, "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "folder to watch")
	cmd.Flags().BoolVar(&initial, "initial", false, "also process the PDFs already in the folder")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "wait this long after the last change before processing")
	return cmd
}

func reloadVendors(a *app, path string) {
	fi, err := os.Stat(path)
	if err != nil {
		a.logger.Warn("vendor master changed but is unreadable", "path", path, "error", err)
		return
	}
	reloaded, err := a.vendors.ReloadIfStale(fi.ModTime())
	if err != nil {
		a.logger.Warn("vendor master reload failed", "error", err)
		return
	}
	if reloaded {
		a.logger.Info("vendor master reloaded", "rows", a.vendors.Get().Len())
	}
}
