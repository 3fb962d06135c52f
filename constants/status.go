package constants

// PageStatus is the canonical status for rows in the page_text cache.
type PageStatus string

// Stable values (store these exact strings in DB).
const (
	PageStatusOCROK  PageStatus = "OCR_OK" // text extracted
	PageStatusParsed PageStatus = "PARSED" // fields extracted from the text
	PageStatusFailed PageStatus = "FAILED" // terminal failure
)
