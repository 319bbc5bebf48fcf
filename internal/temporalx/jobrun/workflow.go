package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	jobstatus "github.com/yungbote/coursehub-backend/internal/domain/jobs"
)

const (
	defaultPollInterval  = 2 * time.Second
	maxSleep             = 15 * time.Minute
	continueTickLimit    = 2000
	continueHistoryLimit = 15000
)

// Workflow drives one job_run row, identified by the workflow ID. While the row
// is queued for later it sleeps until run_after, re-reading it on every tick so a
// debounce push-back is picked up without a signal.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    time.Minute,
		// Retries happen at the workflow level, driven by job_run.attempts.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	tickCount := 0
	for {
		tickCount++
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(out.Status)) {
		case jobstatus.StatusSucceeded, jobstatus.StatusCanceled:
			return nil
		case jobstatus.StatusFailed:
			return fmt.Errorf("job failed (stage=%s attempts=%d): %s", out.Stage, out.Attempts, out.Message)
		}

		if d := nextWait(ctx, out.WaitUntil, defaultPollInterval); d > 0 {
			if err := workflow.Sleep(ctx, d); err != nil {
				return err
			}
		}
		if shouldContinueAsNew(ctx, tickCount) {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
	}
}

func nextWait(ctx workflow.Context, waitUntil *time.Time, def time.Duration) time.Duration {
	if waitUntil == nil || waitUntil.IsZero() {
		return def
	}
	d := waitUntil.Sub(workflow.Now(ctx))
	if d <= 0 {
		return def
	}
	if d > maxSleep {
		return maxSleep
	}
	return d
}

func shouldContinueAsNew(ctx workflow.Context, ticks int) bool {
	if ticks >= continueTickLimit {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= continueHistoryLimit
}
