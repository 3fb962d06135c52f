package async

import (
	"context"
	"time"
)

// Job is one file to process.
type Job struct {
	Path        string
	Force       bool // bypass the OCR cache
	SubmittedAt time.Time
	RunID       string
}

// Handler processes a single job.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
