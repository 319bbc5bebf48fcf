package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	jobstatus "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// JobWorkflowName is the Temporal workflow type that drives a job_run row.
const JobWorkflowName = "job_run"

type JobService interface {
	// Enqueue persists a queued job. ownerUserID is uuid.Nil for system jobs.
	// runAfter delays the first claim; nil means as soon as possible.
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any, runAfter *time.Time) (*types.JobRun, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	Reschedule(dbc dbctx.Context, jobID uuid.UUID, runAfter time.Time) (bool, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetQueuedForEntity(dbc dbctx.Context, jobType string, entityType string, entityID uuid.UUID) (*types.JobRun, error)
	ExistsRunnable(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID) (bool, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

// NewJobService returns a service that leaves queued rows for the local worker
// when tc is nil, and starts a Temporal workflow per job otherwise.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any, runAfter *time.Time) (*types.JobRun, error) {
	if strings.TrimSpace(jobType) == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	var due *time.Time
	if runAfter != nil && !runAfter.IsZero() {
		t := runAfter.UTC()
		due = &t
	}
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      jobstatus.StatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		RunAfter:    due,
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Debug("Job enqueued", "job_id", job.ID, "job_type", jobType, "run_after", due)

	// Inside a real transaction the workflow would race the commit; callers
	// dispatch after commit instead.
	if isDBTransaction(dbc.Tx) {
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

// Dispatch hands a queued job to Temporal. With no Temporal client the local
// worker claims the row by itself and Dispatch is a no-op.
func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s.temporal == nil {
		return nil
	}
	if jobID == uuid.Nil {
		return fmt.Errorf("missing job id")
	}
	ctx := ctxutil.Default(dbc.Ctx)

	err := s.startWorkflow(ctx, jobID)
	if err == nil {
		return nil
	}
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}

	now := time.Now().UTC()
	if uerr := s.repo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: s.db}, jobID, map[string]interface{}{
		"status":        jobstatus.StatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}); uerr != nil {
		s.log.Warn("Marking undispatched job failed", "job_id", jobID, "error", uerr)
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID) error {
	tq := s.temporalTaskQueue
	if tq == "" {
		tq = "coursehub"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, JobWorkflowName)
	return err
}

// Reschedule moves a still-queued job. The Temporal workflow re-reads
// run_after on every tick, so no signal is needed.
func (s *jobService) Reschedule(dbc dbctx.Context, jobID uuid.UUID, runAfter time.Time) (bool, error) {
	ok, err := s.repo.Reschedule(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, jobID, runAfter)
	if err != nil {
		return false, fmt.Errorf("reschedule job: %w", err)
	}
	return ok, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := s.repo.GetByIDs(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *jobService) GetQueuedForEntity(dbc dbctx.Context, jobType string, entityType string, entityID uuid.UUID) (*types.JobRun, error) {
	return s.repo.GetQueuedForEntity(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, jobType, entityType, entityID)
}

func (s *jobService) ExistsRunnable(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID) (bool, error) {
	return s.repo.ExistsRunnable(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Or(s.db)}, ownerUserID, jobType, entityType, entityID)
}
