package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

type parseOutput struct {
	extract.Result
	Vendor *vendor.Match `json:"vendor,omitempty"`
}

func newParseCmd(root *rootOptions) *cobra.Command {
	var (
		docType  string
		noVendor bool
	)
	cmd := &cobra.Command{
		Use:   "parse <page.txt>",
		Short: "Extract fields from an OCR text file and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.NewAppError(common.CodeInvalidInput, "read text file", err)
			}
			if docType == "" {
				docType = cfg.Batch.DocumentType
			}

			out := parseOutput{Result: extract.Parse(string(data), loadTemplates(cfg, logger), docType)}
			if !noVendor {
				if m, ok := loadVendors(cfg, logger).Resolve(out.TaxID, out.Branch); ok {
					out.Vendor = &m
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", `document type code, or "auto"`)
	cmd.Flags().BoolVar(&noVendor, "no-vendor", false, "skip the vendor master lookup")
	return cmd
}
