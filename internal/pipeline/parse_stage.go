package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/invoice-ocr/internal/extract"
	"github.com/joseph-ayodele/invoice-ocr/internal/template"
	"github.com/joseph-ayodele/invoice-ocr/internal/vendor"
)

// VendorResolver is satisfied by *vendor.Cache.
type VendorResolver interface {
	Resolve(taxID, branch string) (vendor.Match, bool)
}

// ParseStage turns page text into fields and joins them to the vendor master.
type ParseStage struct {
	Templates    *template.Set
	Vendors      VendorResolver // optional
	DocumentType string
	Logger       *slog.Logger
}

func NewParseStage(set *template.Set, vendors VendorResolver, docType string, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Templates: set, Vendors: vendors, DocumentType: docType, Logger: logger}
}

// Run parses text and resolves the vendor. A lookup miss leaves the match
// empty.
func (s *ParseStage) Run(text string) (extract.Result, vendor.Match, bool) {
	res := extract.Parse(text, s.Templates, s.DocumentType)
	if s.Vendors == nil {
		return res, vendor.Match{}, false
	}
	m, ok := s.Vendors.Resolve(res.TaxID, res.Branch)
	return res, m, ok
}
