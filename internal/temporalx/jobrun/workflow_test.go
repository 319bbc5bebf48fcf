package jobrun

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	jobstatus "github.com/yungbote/coursehub-backend/internal/domain/jobs"
)

func newWorkflowEnv(t *testing.T, tick func(ctx context.Context, jobID string) (TickResult, error)) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(tick, activity.RegisterOptions{Name: ActivityTick})
	env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "9b2f6c1e-3c1d-4a57-9f0e-0d1b2c3d4e5f"})
	return env
}

func TestWorkflowSleepsUntilRunAfter(t *testing.T) {
	var env *testsuite.TestWorkflowEnvironment
	var calls int32
	var target time.Time

	env = newWorkflowEnv(t, func(ctx context.Context, jobID string) (TickResult, error) {
		atomic.AddInt32(&calls, 1)
		if env.Now().Before(target) {
			wait := target
			return TickResult{JobID: jobID, Status: jobstatus.StatusQueued, WaitUntil: &wait}, nil
		}
		return TickResult{JobID: jobID, Status: jobstatus.StatusSucceeded, Stage: "done", Progress: 100}, nil
	})
	target = env.Now().Add(4 * time.Hour)

	env.ExecuteWorkflow(WorkflowName)
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if env.Now().Before(target) {
		t.Fatalf("workflow finished before run_after: now=%s target=%s", env.Now(), target)
	}
	// Sleeps are capped, so a 4h wait takes several ticks.
	if n := atomic.LoadInt32(&calls); n < 4*int32(time.Hour/maxSleep) {
		t.Fatalf("expected repeated ticks while waiting, got %d", n)
	}
}

func TestWorkflowPicksUpPushedBackRunAfter(t *testing.T) {
	var env *testsuite.TestWorkflowEnvironment
	var target time.Time
	pushed := false

	env = newWorkflowEnv(t, func(ctx context.Context, jobID string) (TickResult, error) {
		now := env.Now()
		if !now.Before(target) && !pushed {
			// A second content change moved the job back before it ran.
			pushed = true
			target = now.Add(10 * time.Minute)
		}
		if now.Before(target) {
			wait := target
			return TickResult{JobID: jobID, Status: jobstatus.StatusQueued, WaitUntil: &wait}, nil
		}
		return TickResult{JobID: jobID, Status: jobstatus.StatusSucceeded}, nil
	})
	start := env.Now()
	target = start.Add(5 * time.Minute)

	env.ExecuteWorkflow(WorkflowName)
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if !pushed || env.Now().Sub(start) < 15*time.Minute {
		t.Fatalf("expected the pushed-back run_after to be honored, elapsed %s", env.Now().Sub(start))
	}
}

func TestWorkflowReportsFailure(t *testing.T) {
	env := newWorkflowEnv(t, func(ctx context.Context, jobID string) (TickResult, error) {
		return TickResult{JobID: jobID, Status: jobstatus.StatusFailed, Stage: "notify", Attempts: 1, Message: "sendgrid http 500"}, nil
	})
	env.ExecuteWorkflow(WorkflowName)
	err := env.GetWorkflowError()
	if err == nil || !strings.Contains(err.Error(), "stage=notify") {
		t.Fatalf("expected failure with stage, got %v", err)
	}
}

func TestWorkflowCanceledJobCompletes(t *testing.T) {
	env := newWorkflowEnv(t, func(ctx context.Context, jobID string) (TickResult, error) {
		return TickResult{JobID: jobID, Status: jobstatus.StatusCanceled}, nil
	})
	env.ExecuteWorkflow(WorkflowName)
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("canceled job should end the workflow cleanly: %v", err)
	}
}
