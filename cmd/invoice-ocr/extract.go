package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	var (
		source  string
		output  string
		pages   string
		docType string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "OCR every PDF in the source folder and write the summary workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Paths.Source = source
			}
			if output != "" {
				cfg.Paths.Output = output
			}
			if pages != "" {
				cfg.Batch.Pages = pages
			}

			ctx, runID := common.NewRunContext(cmd.Context())
			logger = logger.With("run_id", runID)

			a, err := newApp(ctx, cfg, logger, docType)
			if err != nil {
				return err
			}
			defer a.Close()

			out, stats, err := a.processor.Run(ctx, cfg.Paths.Source, cfg.Batch.SummaryName, force)
			if err != nil {
				return err
			}
			logger.Info("extract complete",
				"summary", out,
				"files", stats.Files,
				"pages", stats.Pages,
				"pages_failed", stats.PagesFailed,
				"matched", stats.Matched,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "folder with the PDFs to process")
	cmd.Flags().StringVar(&output, "out", "", "output folder for page texts and the summary")
	cmd.Flags().StringVar(&pages, "pages", "", `pages to read: "All", "1", "1,3", "2-5", "3-n"`)
	cmd.Flags().StringVar(&docType, "type", "", `document type code, or "auto"`)
	cmd.Flags().BoolVar(&force, "force", false, "ignore cached OCR text")
	return cmd
}
