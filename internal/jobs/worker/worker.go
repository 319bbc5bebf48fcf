package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	jobstatus "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/jobs/runtime"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/envutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const (
	defaultMaxAttempts  = 5
	defaultRetryDelay   = 30 * time.Second
	defaultStaleRunning = 30 * time.Minute
	defaultPollInterval = time.Second
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		PollInterval: envutil.Millis("WORKER_POLL_INTERVAL_MS", defaultPollInterval),
		MaxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", defaultMaxAttempts),
		RetryDelay:   envutil.Seconds("JOB_RETRY_DELAY_SECONDS", defaultRetryDelay),
		StaleRunning: envutil.Seconds("JOB_STALE_RUNNING_SECONDS", defaultStaleRunning),
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = defaultStaleRunning
	}
	return c
}

// Worker polls job_run for runnable rows and executes them in-process. It is the
// fallback runner used when Temporal is not configured.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	cfg      Config
	wg       sync.WaitGroup
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		cfg:      cfg.withDefaults(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop started by Start has returned.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
				}
				if !ran || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

// RunOnce claims and executes at most one runnable job. It reports whether a job was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(ctx, job)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	start := time.Now()
	jc := runtime.NewContext(ctx, w.db, job, w.repo)
	log := w.log.With("job_id", job.ID, "job_type", job.JobType)

	defer func() {
		observability.Current().ObserveJob(job.JobType, jc.Job.Status, time.Since(start))
	}()

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job handler panic", "panic", r)
			jc.Fail("panic", errFromRecover(r))
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		jc.Fail("run", runErr)
		return
	}
	// A handler that returns without reporting a terminal state is treated as done.
	if jc.Job.Status == jobstatus.StatusRunning {
		jc.Succeed("done", nil)
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
