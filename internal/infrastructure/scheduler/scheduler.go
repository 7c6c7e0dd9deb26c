// Package scheduler runs the periodic jobs of the licensing service.
package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the outcome of a scheduled run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Run records one execution of a scheduled job, including its retries
type Run struct {
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	Processed   int        `json:"processed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r *Run) start(at time.Time) {
	r.Status = JobStatusRunning
	r.StartedAt = &at
	r.CompletedAt = nil
	r.Error = ""
	r.Attempts = 0
	r.Processed = 0
}

func (r *Run) complete(at time.Time, processed int) {
	r.Status = JobStatusSuccess
	r.CompletedAt = &at
	r.Processed = processed
}

func (r *Run) fail(at time.Time, err error) {
	r.Status = JobStatusFailed
	r.CompletedAt = &at
	r.Error = err.Error()
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(fmt.Sprintf("%s: %v", msg, err), keysAndValues...)
}
