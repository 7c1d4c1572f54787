// Package jobs runs background work over Asynq: the scheduled orphan-file
// sweep plus the queue plumbing around it.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Queue and task names.
const (
	QueueDefault = "default"

	TaskSweepOrphanFiles = "attachments:sweep_orphans"
)

// SweepPayload configures one orphan sweep run.
type SweepPayload struct {
	// GraceMinutes is how old a file must be before an untracked copy is
	// considered an orphan. Zero falls back to the handler default.
	GraceMinutes int `json:"grace_minutes"`
}

// Grace converts the payload into a duration with the handler default.
func (p SweepPayload) Grace() time.Duration {
	if p.GraceMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(p.GraceMinutes) * time.Minute
}

// NewSweepTask builds the orphan sweep task.
func NewSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSweepOrphanFiles, data), nil
}
