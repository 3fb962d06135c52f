package ocr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, common.NewAppError(common.CodeOCR, fmt.Sprintf("count pages of %s", path), err)
	}
	return n, nil
}

// ParsePageSelection turns a selection such as "All", "2", "1,3", "2-5" or
// "3-n" into sorted, unique page numbers within 1..total. Pages outside the
// document are dropped. Malformed ranges are an error; stray tokens that are
// not numbers are ignored.
func ParsePageSelection(sel string, total int) ([]int, error) {
	sel = strings.ToLower(strings.ReplaceAll(sel, " ", ""))
	if total <= 0 {
		return nil, nil
	}
	if sel == "" || sel == "all" {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}

	set := make(map[int]struct{})
	for _, part := range strings.Split(sel, ",") {
		if strings.Contains(part, "-") {
			bounds := strings.Split(part, "-")
			if len(bounds) != 2 {
				return nil, fmt.Errorf("%w: page range %q", common.ErrInvalidInput, part)
			}
			start, err := strconv.Atoi(bounds[0])
			if err != nil {
				return nil, fmt.Errorf("%w: page range %q", common.ErrInvalidInput, part)
			}
			end := total
			if bounds[1] != "n" {
				if end, err = strconv.Atoi(bounds[1]); err != nil {
					return nil, fmt.Errorf("%w: page range %q", common.ErrInvalidInput, part)
				}
			}
			start, end = max(start, 1), min(end, total)
			for p := start; p <= end; p++ {
				set[p] = struct{}{}
			}
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		if p >= 1 && p <= total {
			set[p] = struct{}{}
		}
	}

	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}
