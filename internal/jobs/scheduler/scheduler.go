package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	jobtypes "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/envutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

const (
	DefaultSweepInterval = 24 * time.Hour
	lockKeyPrefix        = "coursehub:scheduler:"
)

type Config struct {
	SweepInterval time.Duration
	// RunOnStart enqueues a sweep immediately instead of waiting a full interval.
	RunOnStart bool
}

func ConfigFromEnv() Config {
	return Config{
		SweepInterval: envutil.Seconds("INACTIVE_SWEEP_INTERVAL_SECONDS", DefaultSweepInterval),
		RunOnStart:    envutil.Bool("INACTIVE_SWEEP_ON_START", true),
	}
}

// Scheduler enqueues the periodic system jobs. With redis configured, only the
// instance holding the per-period lock enqueues.
type Scheduler struct {
	log        *logger.Logger
	jobs       services.JobService
	rdb        *goredis.Client
	cfg        Config
	instanceID string
	now        func() time.Time
}

func New(baseLog *logger.Logger, jobs services.JobService, rdb *goredis.Client, cfg Config) *Scheduler {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Scheduler{
		log:        baseLog.With("component", "Scheduler"),
		jobs:       jobs,
		rdb:        rdb,
		cfg:        cfg,
		instanceID: uuid.NewString(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("Starting scheduler", "sweep_interval", s.cfg.SweepInterval.String(), "leader_lock", s.rdb != nil)
	go func() {
		if s.cfg.RunOnStart {
			s.tick(ctx)
		}
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Scheduler stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.EnqueueSweep(ctx); err != nil {
		s.log.Warn("Inactive user sweep scheduling failed", "error", err)
	}
}

// EnqueueSweep queues an inactive_user_sweep job unless another instance holds
// this period's lock or a sweep is already queued or running. It reports whether
// a job was queued.
func (s *Scheduler) EnqueueSweep(ctx context.Context) (bool, error) {
	leader, err := s.acquire(ctx, jobtypes.TypeInactiveUserSweep)
	if err != nil {
		return false, err
	}
	if !leader {
		s.log.Debug("Sweep lock held elsewhere; skipping")
		return false, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.jobs.ExistsRunnable(dbc, uuid.Nil, jobtypes.TypeInactiveUserSweep, "", nil)
	if err != nil {
		return false, fmt.Errorf("check runnable sweep: %w", err)
	}
	if exists {
		s.log.Debug("Sweep already queued or running")
		return false, nil
	}

	now := s.now()
	job, err := s.jobs.Enqueue(dbc, uuid.Nil, jobtypes.TypeInactiveUserSweep, "", nil, map[string]any{
		"scheduled_at": now.Format(time.RFC3339),
	}, &now)
	if err != nil {
		return false, fmt.Errorf("enqueue sweep: %w", err)
	}
	s.log.Info("Inactive user sweep queued", "job_id", job.ID)
	return true, nil
}

// acquire takes a lock that expires shortly before the next tick.
func (s *Scheduler) acquire(ctx context.Context, name string) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}
	ttl := s.cfg.SweepInterval - s.cfg.SweepInterval/10
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.rdb.SetNX(ctx, lockKeyPrefix+name, s.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler lock: %w", err)
	}
	return ok, nil
}
