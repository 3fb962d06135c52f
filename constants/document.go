package constants

// Document types and the defaults used when no template applies.
const (
	DefaultDocumentType     = "invoice"
	DefaultDocumentTypeName = "ใบกำกับภาษี/Invoice"
	AutoDocumentType        = "auto"
)

// Well-known field names that land in the fixed result slots.
const (
	FieldDocumentNo = "document_no"
	FieldDate       = "date"
	FieldAmount     = "amount"
)

// FallbackLastAmount takes the last money-shaped token when no pattern hits.
const FallbackLastAmount = "last_amount"

// Branch codes.
const (
	HeadOfficeBranch = "00000"
	BranchPadWidth   = 5
	TaxIDLength      = 13
	MinTaxIDDigits   = 10
)

// HeadOfficePattern matches head-office wording in Thai and English.
// "H.O."/"HO" must stand alone so words like "Phone" do not count.
const HeadOfficePattern = `(?:สำนักงานใหญ่|สนญ\.?|Head\s*Office|\bH\.O\.?|\bHO\b)`

// AmountPattern is a money-shaped token: digits with separators and 2 decimals.
const AmountPattern = `([\d,]+\.\d{2})`
