package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

func TestInProcessBusDispatchesToAllHandlers(t *testing.T) {
	bus := NewInProcessBus(logger.Nop())
	courseID := uuid.New()

	var got []string
	bus.Subscribe(func(ctx context.Context, ev CourseContentChanged) error {
		got = append(got, "a:"+ev.Reason)
		return nil
	})
	bus.Subscribe(func(ctx context.Context, ev CourseContentChanged) error {
		got = append(got, "b:"+ev.Reason)
		return errors.New("boom")
	})
	bus.Subscribe(func(ctx context.Context, ev CourseContentChanged) error {
		panic("handler exploded")
	})

	err := bus.Publish(context.Background(), CourseContentChanged{CourseID: courseID, Reason: ReasonLessonCreated})
	if err == nil {
		t.Fatal("expected joined handler error")
	}
	if len(got) != 2 || got[0] != "a:lesson_created" || got[1] != "b:lesson_created" {
		t.Fatalf("unexpected dispatch order: %v", got)
	}
}

func TestInProcessBusStampsTime(t *testing.T) {
	bus := NewInProcessBus(logger.Nop())
	var at time.Time
	bus.Subscribe(func(ctx context.Context, ev CourseContentChanged) error {
		at = ev.At
		return nil
	})
	if err := bus.Publish(context.Background(), CourseContentChanged{CourseID: uuid.New()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if at.IsZero() {
		t.Fatal("expected event time to be set")
	}
}

func TestRedisBusForwardsToLocalHandlers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	bus, err := NewRedisBus(logger.Nop(), rdb, "")
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer bus.Close()

	received := make(chan CourseContentChanged, 1)
	bus.Subscribe(func(ctx context.Context, ev CourseContentChanged) error {
		received <- ev
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bus.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	courseID := uuid.New()
	if err := bus.Publish(ctx, CourseContentChanged{CourseID: courseID, Reason: ReasonCourseUpdated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-received:
		if ev.CourseID != courseID || ev.Reason != ReasonCourseUpdated {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
}

func TestNewRedisBusRequiresClient(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), nil, ""); err == nil {
		t.Fatal("expected error without redis client")
	}
}
