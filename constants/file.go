package constants

import "strings"

// AllowedExtensions holds the file extensions picked up from a source folder.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without the dot) is processed.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// DefaultSummaryName is the summary workbook written into the output dir.
const DefaultSummaryName = "summary_ocr.xlsx"
