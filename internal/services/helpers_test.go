package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/events"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type testEnv struct {
	db       *gorm.DB
	log      *logger.Logger
	users    repos.UserRepo
	tokens   repos.UserTokenRepo
	courses  repos.CourseRepo
	lessons  repos.LessonRepo
	subs     repos.SubscriptionRepo
	payments repos.PaymentRepo
	jobs     repos.JobRunRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return &testEnv{
		db:       db,
		log:      log,
		users:    repos.NewUserRepo(db, log),
		tokens:   repos.NewUserTokenRepo(db, log),
		courses:  repos.NewCourseRepo(db, log),
		lessons:  repos.NewLessonRepo(db, log),
		subs:     repos.NewSubscriptionRepo(db, log),
		payments: repos.NewPaymentRepo(db, log),
		jobs:     repos.NewJobRunRepo(db, log),
	}
}

// as returns a request context authenticated as u.
func as(u *types.User) dbctx.Context {
	ctx := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID:      u.ID,
		Role:        u.Role,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	})
	return dbctx.Context{Ctx: ctx}
}

func anonymous() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func statusOf(err error) int { return apierr.StatusOf(err, http.StatusInternalServerError) }

func expectStatus(t *testing.T, op string, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected status %d, got nil error", op, want)
	}
	if got := statusOf(err); got != want {
		t.Fatalf("%s: expected status %d, got %d (%v)", op, want, got, err)
	}
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.CourseContentChanged
}

func (b *recordingBus) Publish(_ context.Context, ev events.CourseContentChanged) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Subscribe(events.Handler) {}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) reasons() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Reason)
	}
	return out
}

func asAPIError(err error, target **apierr.Error) bool { return errors.As(err, target) }
