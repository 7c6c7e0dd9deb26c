package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned for a cron expression that does not parse
	ErrInvalidSchedule = errors.New("invalid cron schedule")

	// ErrSchedulerNotRunning is returned when stopping a scheduler that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrRunInProgress is returned by RunNow while another run is executing
	ErrRunInProgress = errors.New("a run is already in progress")
)
