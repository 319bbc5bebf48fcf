package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestSubscriptionToggle(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewSubscriptionService(e.log, e.subs, e.courses)

	owner := testutil.SeedUser(t, ctx, e.db, "owner@example.com")
	student := testutil.SeedUser(t, ctx, e.db, "student@example.com")
	c := testutil.SeedCourse(t, ctx, e.db, &owner.ID, "course")

	want := []struct {
		subscribed bool
		message    string
	}{
		{true, SubscriptionAddedMessage},
		{false, SubscriptionRemovedMessage},
		{true, SubscriptionAddedMessage},
	}
	for i, w := range want {
		res, err := svc.Toggle(as(student), c.ID)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if res.Subscribed != w.subscribed || res.Message != w.message {
			t.Fatalf("toggle %d: got %+v want %+v", i, res, w)
		}
	}
	subs, err := e.subs.ListByUser(dbctx.Context{Ctx: ctx}, student.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected exactly one subscription row, got %d (err=%v)", len(subs), err)
	}

	_, err = svc.Toggle(as(student), uuid.New())
	expectStatus(t, "toggle missing course", err, http.StatusNotFound)
	_, err = svc.Toggle(anonymous(), c.ID)
	expectStatus(t, "toggle anonymous", err, http.StatusUnauthorized)
}

// racingSubs reports no subscription from Get but inserts one first, as a
// concurrent Toggle from another request would.
type racingSubs struct {
	repos.SubscriptionRepo
}

func (r racingSubs) Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Subscription, error) {
	if err := r.SubscriptionRepo.Create(dbc, &types.Subscription{UserID: userID, CourseID: courseID, IsActive: true}); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestSubscriptionToggleConcurrentCreate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewSubscriptionService(e.log, racingSubs{e.subs}, e.courses)

	owner := testutil.SeedUser(t, ctx, e.db, "owner@example.com")
	student := testutil.SeedUser(t, ctx, e.db, "student@example.com")
	c := testutil.SeedCourse(t, ctx, e.db, &owner.ID, "course")

	res, err := svc.Toggle(as(student), c.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.Subscribed || res.Message != SubscriptionAddedMessage {
		t.Fatalf("toggle: got %+v", res)
	}
	subs, err := e.subs.ListByUser(dbctx.Context{Ctx: ctx}, student.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected exactly one subscription row, got %d (err=%v)", len(subs), err)
	}
}
