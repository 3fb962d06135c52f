package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

type resolveOutput struct {
	TaxID     string            `json:"tax_id"`
	Branch    string            `json:"branch"`
	Found     bool              `json:"found"`
	Vendor    *vendor.Match     `json:"vendor,omitempty"`
	Diagnosis *vendor.Diagnosis `json:"diagnosis,omitempty"`
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "resolve <tax-id> <branch>",
		Short: "Look up a vendor by tax ID and branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(root)
			if err != nil {
				return err
			}
			vendors := loadVendors(cfg, logger)
			table := vendors.Get()
			if table == nil {
				return common.NewAppError(common.CodeVendorMaster, "vendor master not loaded", common.ErrVendorMaster)
			}

			out := resolveOutput{
				TaxID:  vendor.NormalizeTaxID(args[0]),
				Branch: vendor.NormalizeBranch(args[1]),
			}
			if m, ok := table.Lookup(args[0], args[1]); ok {
				out.Found = true
				out.Vendor = &m
			} else if explain {
				d := table.Diagnose(args[0], args[1])
				out.Diagnosis = &d
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "on a miss, list near matches from the vendor master")
	return cmd
}
