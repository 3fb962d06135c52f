package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-ocr/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf).
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

func allowedPath(path string) bool {
	return AllowedExt(filepath.Ext(path))
}
