package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	jobstatus "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/coursehub-backend/internal/jobs/runtime"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const defaultMaxAttempts = 5

type Activities struct {
	Log         *logger.Logger
	DB          *gorm.DB
	Jobs        repos.JobRunRepo
	Registry    *jobrt.Registry
	MaxAttempts int
}

func (a *Activities) maxAttempts() int {
	if a.MaxAttempts < 1 {
		return defaultMaxAttempts
	}
	return a.MaxAttempts
}

// Tick runs the job once if it is due and reports its state afterwards. A job
// whose run_after is still ahead is left untouched and reported with WaitUntil.
func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	parsedJobID, err := uuid.Parse(res.JobID)
	if err != nil || parsedJobID == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id")
	}

	job, err := a.loadJob(ctx, parsedJobID)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job not found")
	}

	now := time.Now().UTC()
	switch {
	case jobstatus.IsTerminal(job.Status):
		return fill(res, job), nil
	case job.Status == jobstatus.StatusFailed && job.Attempts >= a.maxAttempts():
		return fill(res, job), nil
	case job.Status == jobstatus.StatusQueued && job.RunAfter != nil && job.RunAfter.After(now):
		return fill(res, job), nil
	}

	claimed, err := a.claim(ctx, job, now)
	if err != nil {
		return res, err
	}
	if !claimed {
		// Canceled or rescheduled between load and claim.
		if job, err = a.loadJob(ctx, parsedJobID); err != nil || job == nil {
			return res, fmt.Errorf("jobrun: reload after lost claim: %v", err)
		}
		return fill(res, job), nil
	}

	stopHB := a.startHeartbeat(ctx, parsedJobID)
	defer stopHB()
	a.run(ctx, job)

	updated, err := a.loadJob(ctx, parsedJobID)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job not found after tick")
	}
	return fill(res, updated), nil
}

func (a *Activities) claim(ctx context.Context, job *types.JobRun, now time.Time) (bool, error) {
	tx := a.DB.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, job.Status, job.Attempts).
		Where("(run_after IS NULL OR run_after <= ?)", now).
		Updates(map[string]interface{}{
			"status":       jobstatus.StatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return false, nil
	}
	job.Status = jobstatus.StatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now
	return true, nil
}

func (a *Activities) run(ctx context.Context, job *types.JobRun) {
	start := time.Now()
	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs)
	defer func() {
		observability.Current().ObserveJob(job.JobType, jc.Job.Status, time.Since(start))
	}()

	h, ok := a.Registry.Get(job.JobType)
	if !ok {
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if a.Log != nil {
				a.Log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			}
			jc.Fail("panic", fmt.Errorf("panic: %v", r))
		}
	}()
	if runErr := h.Run(jc); runErr != nil {
		jc.Fail("run", runErr)
		return
	}
	if jc.Job.Status == jobstatus.StatusRunning {
		if a.Log != nil {
			a.Log.Warn("Job handler returned without terminal status; marking succeeded", "job_id", job.ID, "job_type", job.JobType)
		}
		jc.Succeed("done", nil)
	}
}

func (a *Activities) loadJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, nil
	}
	return rows[0], nil
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				activity.RecordHeartbeat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID)
			}
		}
	}()
	return func() { close(done) }
}

func fill(res TickResult, job *types.JobRun) TickResult {
	res.Status = job.Status
	res.Stage = job.Stage
	res.Progress = job.Progress
	res.Attempts = job.Attempts
	res.Message = job.Message
	if job.Status == jobstatus.StatusFailed && job.Error != "" {
		res.Message = job.Error
	}
	if job.Status == jobstatus.StatusQueued && job.RunAfter != nil {
		t := job.RunAfter.UTC()
		res.WaitUntil = &t
	}
	return res
}
