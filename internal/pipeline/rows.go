package pipeline

import (
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/invoice-ocr/internal/export"
)

// RowSet accumulates summary rows keyed by source file so that a file
// processed again replaces its earlier rows instead of adding to them.
// Safe for concurrent use.
type RowSet struct {
	mu     sync.Mutex
	order  []string
	byPath map[string][]export.Row
}

func NewRowSet() *RowSet {
	return &RowSet{byPath: make(map[string][]export.Row)}
}

// Replace sets the rows for path. Empty rows remove path.
func (s *RowSet) Replace(path string, rows []export.Row) {
	key := filepath.Clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rows) == 0 {
		if _, ok := s.byPath[key]; ok {
			delete(s.byPath, key)
			for i, p := range s.order {
				if p == key {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := s.byPath[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byPath[key] = append([]export.Row(nil), rows...)
}

// Rows returns every row, files in the order they were first added.
func (s *RowSet) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []export.Row
	for _, p := range s.order {
		out = append(out, s.byPath[p]...)
	}
	return out
}

// Len reports the number of files held.
func (s *RowSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
