package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a recorded pass.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// SyncRun is a persisted record of one reconciliation pass.
type SyncRun struct {
	id         string
	sequence   int
	status     RunStatus
	summary    SyncSummary
	errMessage string
	startedAt  time.Time
	finishedAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewSyncRun creates a running [SyncRun] started at startedAt.
func NewSyncRun(sequence int, startedAt time.Time) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:  sequence,
		status:    RunStatusRunning,
		startedAt: startedAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *SyncRun) ID() string                { return r.id }
func (r *SyncRun) Sequence() int             { return r.sequence }
func (r *SyncRun) Status() RunStatus         { return r.status }
func (r *SyncRun) Summary() SyncSummary      { return r.summary }
func (r *SyncRun) ErrorMessage() string      { return r.errMessage }
func (r *SyncRun) StartedAt() time.Time      { return r.startedAt }
func (r *SyncRun) FinishedAt() *time.Time    { return r.finishedAt }
func (r *SyncRun) CreatedAt() time.Time      { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time      { return r.updatedAt }
func (r *SyncRun) SetID(id string)           { r.id = id }
func (r *SyncRun) SetSequence(seq int)       { r.sequence = seq }
func (r *SyncRun) SetUpdatedAt(t time.Time)  { r.updatedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time)  { r.createdAt = t }
func (r *SyncRun) DeletedAt() *time.Time     { return r.deletedAt }
func (r *SyncRun) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// Duration returns how long the pass took, or zero while it is running.
func (r *SyncRun) Duration() time.Duration {
	if r.finishedAt == nil {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// Succeed marks the run finished with summary.
func (r *SyncRun) Succeed(summary SyncSummary, at time.Time) {
	r.status = RunStatusSucceeded
	r.summary = summary
	r.errMessage = ""
	r.finishedAt = &at
}

// Fail marks the run finished with err. A partial summary may be attached.
func (r *SyncRun) Fail(summary SyncSummary, err error, at time.Time) {
	r.status = RunStatusFailed
	r.summary = summary
	if err != nil {
		r.errMessage = err.Error()
	}
	r.finishedAt = &at
}

// Restore sets the fields loaded from storage.
func (r *SyncRun) Restore(status RunStatus, summary SyncSummary, errMessage string, finishedAt *time.Time) {
	r.status = status
	r.summary = summary
	r.errMessage = errMessage
	r.finishedAt = finishedAt
}

// Validate checks the run's invariants.
func (r *SyncRun) Validate() error {
	switch r.status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
	default:
		return fmt.Errorf("invalid run status: %q", r.status)
	}

	if r.startedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	if r.finishedAt != nil && r.finishedAt.Before(r.startedAt) {
		return fmt.Errorf("finished_at precedes started_at")
	}
	if r.status == RunStatusSucceeded && r.finishedAt == nil {
		return fmt.Errorf("succeeded run requires finished_at")
	}

	s := r.summary
	if s.CandidateCount+s.SkippedCount > s.LikedCount {
		return fmt.Errorf("candidate and skipped counts exceed liked count")
	}
	return nil
}
