package ingest

// FileInfo is one discovered source document.
type FileInfo struct {
	Path    string
	HashHex string
	Err     string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}
