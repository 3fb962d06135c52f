package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// HashFile returns the hex SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			slog.Warn("close file error", "path", path, "error", err)
		}
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ScanDir lists the PDFs directly inside root, sorted by name, skipping
// hidden files if requested. Subdirectories are not descended into.
func ScanDir(root string, skipHidden bool) ([]FileInfo, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, stats, fmt.Errorf("read dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		stats.Scanned++
		if e.IsDir() {
			continue
		}
		if skipHidden && IsHidden(e.Name()) {
			continue
		}
		if !allowedPath(e.Name()) {
			continue
		}
		stats.Matched++
		files = append(files, FileInfo{Path: filepath.Join(root, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, stats, nil
}

// WalkDir is the recursive form of ScanDir and also hashes every match.
// Per-file failures are recorded on the FileInfo and counted, not returned.
func WalkDir(root string, skipHidden bool) ([]FileInfo, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			files = append(files, FileInfo{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowedPath(path) {
			return nil
		}
		stats.Matched++

		sum, err := HashFile(path)
		if err != nil {
			files = append(files, FileInfo{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		files = append(files, FileInfo{Path: path, HashHex: sum})
		return nil
	})
	if err != nil {
		return files, stats, fmt.Errorf("walk: %w", err)
	}
	return files, stats, nil
}

// HashAll fills HashHex for every file, hashing up to limit files at a time.
// A file that cannot be read gets Err set instead; only cancellation is
// returned as an error.
func HashAll(ctx context.Context, files []FileInfo, limit int) error {
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range files {
		f := &files[i]
		if f.HashHex != "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := HashFile(f.Path)
			if err != nil {
				f.Err = err.Error()
				return nil
			}
			f.HashHex = sum
			return nil
		})
	}
	return g.Wait()
}
