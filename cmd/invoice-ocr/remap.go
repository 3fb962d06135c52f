package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/export"
)

func newRemapCmd(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "remap <summary.xlsx>",
		Short: "Refill vendor code and name in an edited summary from the vendor master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			vendors := loadVendors(cfg, logger)
			if vendors.Get() == nil {
				return common.NewAppError(common.CodeVendorMaster, "vendor master not loaded", common.ErrVendorMaster)
			}
			if out == "" {
				out = args[0]
			}
			stats, err := export.Remap(args[0], out, vendors, logger)
			if err != nil {
				return common.NewAppError(common.CodeExport, "remap summary", err)
			}
			logger.Info("remap complete", "rows", stats.Rows, "matched", stats.Matched, "out", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of overwriting the input")
	return cmd
}
