package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/crewdesk/crewdesk/internal/attach"
	"github.com/crewdesk/crewdesk/internal/observability"
)

// SweepJob removes upload files that no longer have a database record. It
// repairs the window the two-phase write design accepts: a crash between
// disk write and row insert leaves a file behind that nothing references.
type SweepJob struct {
	Store   *attach.Store
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewSweepJob initialises the sweep handler.
func NewSweepJob(store *attach.Store, logger *slog.Logger, metrics *observability.Metrics) *SweepJob {
	return &SweepJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle executes one sweep run.
func (j *SweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("sweep: handler not configured")
	}
	var payload SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	j.Logger.Info("starting orphan file sweep", slog.Duration("grace", payload.Grace()))

	removed, err := j.Store.SweepOrphans(ctx, payload.Grace())
	if err != nil {
		j.Logger.Error("orphan file sweep failed",
			slog.Int("removed", removed), slog.Any("error", err))
		return err
	}

	j.Metrics.RecordSweptFiles(removed)
	j.Logger.Info("completed orphan file sweep",
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)))
	return nil
}
