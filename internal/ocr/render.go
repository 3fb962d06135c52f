package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// renderPage rasterizes one PDF page to PNG with pdftoppm and returns the
// image path. Call cleanup to remove the temp dir.
func renderPage(ctx context.Context, r Runner, bin string, dpi int, path string, page int) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "invoice-ocr-page-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	p := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.Run(ctx, bin, "-r", strconv.Itoa(dpi), "-png", "-f", p, "-l", p, "-singlefile", path, prefix)
	if err != nil {
		return "", cleanup, fmt.Errorf("render page %d: %w: %s", page, err, string(errb))
	}

	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		return "", cleanup, fmt.Errorf("render page %d produced no image: %w", page, statErr)
	}
	return out, cleanup, nil
}
