package modtl

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Job carries the state of one translation run: its identity, its
// cancellation and its counters. Workers receive the job explicitly; there is
// no process-wide registry.
type Job struct {
	ID     string
	FileID string // source file the entries came from, used in locators

	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	translated atomic.Int64
	cached     atomic.Int64
	repaired   atomic.Int64
	failed     atomic.Int64
}

// NewJob creates a job bound to ctx. Cancel the job, or ctx, to stop every
// worker and interrupt any backoff in progress.
func NewJob(ctx context.Context, fileID string) *Job {
	ctx, cancel := context.WithCancel(ctx)
	return &Job{
		ID:      uuid.NewString(),
		FileID:  fileID,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
	}
}

// Context returns the job's context.
func (j *Job) Context() context.Context {
	return j.ctx
}

// Cancel stops the job.
func (j *Job) Cancel() {
	j.cancel()
}

// Done reports whether the job was cancelled.
func (j *Job) Done() bool {
	return j.ctx.Err() != nil
}

// JobStats is a snapshot of a job's counters.
type JobStats struct {
	ID         string
	Translated int64
	Cached     int64
	Repaired   int64
	Failed     int64
	Elapsed    time.Duration
}

// Stats returns the current counters.
func (j *Job) Stats() JobStats {
	return JobStats{
		ID:         j.ID,
		Translated: j.translated.Load(),
		Cached:     j.cached.Load(),
		Repaired:   j.repaired.Load(),
		Failed:     j.failed.Load(),
		Elapsed:    time.Since(j.started),
	}
}
