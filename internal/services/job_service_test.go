package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	jobtypes "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestJobServiceEnqueueLocal(t *testing.T) {
	e := newTestEnv(t)
	svc := NewJobService(e.db, e.log, e.jobs, nil, "")
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "trace-1", RequestID: "req-1"})
	dbc := dbctx.Context{Ctx: ctx}

	if _, err := svc.Enqueue(dbc, uuid.Nil, "", "", nil, nil, nil); err == nil {
		t.Fatal("expected error for empty job type")
	}

	due := time.Now().UTC().Add(time.Hour)
	job, err := svc.Enqueue(dbc, uuid.Nil, jobtypes.TypeInactiveUserSweep, "", nil, map[string]any{"k": "v"}, &due)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != jobtypes.StatusQueued || job.RunAfter == nil {
		t.Fatalf("unexpected job: %+v", job)
	}
	got, err := svc.GetByID(dbc, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	payload := string(got.Payload)
	for _, want := range []string{`"trace_id":"trace-1"`, `"request_id":"req-1"`, `"k":"v"`} {
		if !strings.Contains(payload, want) {
			t.Fatalf("payload %s missing %s", payload, want)
		}
	}

	if exists, err := svc.ExistsRunnable(dbc, uuid.Nil, jobtypes.TypeInactiveUserSweep, "", nil); err != nil || !exists {
		t.Fatalf("ExistsRunnable: exists=%v err=%v", exists, err)
	}

	later := due.Add(time.Hour)
	if ok, err := svc.Reschedule(dbc, job.ID, later); err != nil || !ok {
		t.Fatalf("Reschedule: ok=%v err=%v", ok, err)
	}
	if err := e.jobs.UpdateFields(dbc, job.ID, map[string]interface{}{"status": jobtypes.StatusRunning}); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if ok, err := svc.Reschedule(dbc, job.ID, later.Add(time.Hour)); err != nil || ok {
		t.Fatalf("Reschedule running job: ok=%v err=%v", ok, err)
	}
	if err := svc.Dispatch(dbc, job.ID); err != nil {
		t.Fatalf("Dispatch without temporal should be a no-op: %v", err)
	}
}

