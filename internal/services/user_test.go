package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/coursehub-backend/internal/data/cache"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
)

func TestUserViews(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewUserService(e.db, e.log, e.users, e.payments, nil)

	me := testutil.SeedUser(t, ctx, e.db, "me@example.com")
	other := testutil.SeedUser(t, ctx, e.db, "other@example.com")
	course := testutil.SeedCourse(t, ctx, e.db, &other.ID, "paid")
	testutil.SeedPayment(t, ctx, e.db, me.ID, &course.ID, "10.00")

	self, err := svc.Get(as(me), me.ID)
	if err != nil {
		t.Fatalf("Get self: %v", err)
	}
	priv, ok := self.(*PrivateUser)
	if !ok || len(priv.Payments) != 1 {
		t.Fatalf("Get self: expected private view with 1 payment, got %#v", self)
	}

	peer, err := svc.Get(as(me), other.ID)
	if err != nil {
		t.Fatalf("Get other: %v", err)
	}
	if _, ok := peer.(*PublicUser); !ok {
		t.Fatalf("Get other: expected public view, got %T", peer)
	}

	_, err = svc.Get(as(me), uuid.New())
	expectStatus(t, "Get missing", err, http.StatusNotFound)
	_, err = svc.Get(anonymous(), me.ID)
	expectStatus(t, "Get anonymous", err, http.StatusUnauthorized)

	rows, total, err := svc.List(as(me), pagination.Page{Number: 1, Size: 10})
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("List: rows=%d total=%d err=%v", len(rows), total, err)
	}
	_, _, err = svc.List(as(me), pagination.Page{Number: 3, Size: 10})
	expectStatus(t, "List past end", err, http.StatusNotFound)
}

func TestUserUpdate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewUserService(e.db, e.log, e.users, e.payments, nil)

	me := testutil.SeedUser(t, ctx, e.db, "self@example.com")
	other := testutil.SeedUser(t, ctx, e.db, "taken@example.com")

	_, err := svc.Update(as(me), other.ID, UserUpdate{City: testutil.PtrString("Kazan")})
	expectStatus(t, "Update other", err, http.StatusForbidden)
	if err.Error() != "You can only edit your own profile." {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	_, err = svc.Update(as(me), me.ID, UserUpdate{Email: testutil.PtrString("TAKEN@example.com")})
	expectStatus(t, "Update duplicate email", err, http.StatusBadRequest)

	got, err := svc.Update(as(me), me.ID, UserUpdate{
		City:     testutil.PtrString(" Kazan "),
		Phone:    testutil.PtrString(""),
		Password: testutil.PtrString("n3w"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.City == nil || *got.City != "Kazan" || got.Phone != nil {
		t.Fatalf("Update: unexpected profile %+v", got.PublicUser)
	}
	stored, _ := e.users.GetByID(dbctx.Context{Ctx: ctx}, me.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("n3w")) != nil {
		t.Fatal("Update: password was not re-hashed")
	}
}

func TestUserDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewUserService(e.db, e.log, e.users, e.payments, nil)

	target := testutil.SeedUser(t, ctx, e.db, "target@example.com")
	student := testutil.SeedUser(t, ctx, e.db, "student@example.com")
	moderator := testutil.SeedModerator(t, ctx, e.db, "mod@example.com")
	admin := testutil.SeedUser(t, ctx, e.db, "admin@example.com")
	admin.IsStaff = true

	expectStatus(t, "Delete as student", svc.Delete(as(student), target.ID), http.StatusForbidden)
	expectStatus(t, "Delete as moderator", svc.Delete(as(moderator), target.ID), http.StatusForbidden)
	expectStatus(t, "Delete missing", svc.Delete(as(admin), uuid.New()), http.StatusNotFound)
	if err := svc.Delete(as(admin), target.ID); err != nil {
		t.Fatalf("Delete as staff: %v", err)
	}
	if u, _ := e.users.GetByID(dbctx.Context{Ctx: ctx}, target.ID); u != nil {
		t.Fatal("Delete: user still present")
	}
}

func TestUserDeleteDropsCachedOwnedCourses(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cc := cache.NewCourseCache(e.log, rdb, time.Hour)
	users := NewUserService(e.db, e.log, e.users, e.payments, cc)
	courses := NewCourseService(e.db, e.log, e.courses, cc, nil)

	owner := testutil.SeedUser(t, ctx, e.db, "owner@example.com")
	other := testutil.SeedUser(t, ctx, e.db, "other@example.com")
	moderator := testutil.SeedModerator(t, ctx, e.db, "mod@example.com")
	admin := testutil.SeedUser(t, ctx, e.db, "admin@example.com")
	admin.IsStaff = true
	owned := testutil.SeedCourse(t, ctx, e.db, &owner.ID, "owned")
	unrelated := testutil.SeedCourse(t, ctx, e.db, &other.ID, "unrelated")

	for _, c := range []uuid.UUID{owned.ID, unrelated.ID} {
		if _, err := courses.Get(as(moderator), c); err != nil {
			t.Fatalf("Get %s: %v", c, err)
		}
		if !mr.Exists("course:detail:" + c.String()) {
			t.Fatalf("Get %s: detail not cached", c)
		}
	}

	if err := users.Delete(as(admin), owner.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("course:detail:" + owned.ID.String()) {
		t.Fatal("owned course still cached after owner deletion")
	}
	if !mr.Exists("course:detail:" + unrelated.ID.String()) {
		t.Fatal("unrelated course evicted")
	}
	got, err := courses.Get(as(moderator), owned.ID)
	if err != nil || got.OwnerID != nil {
		t.Fatalf("Get after owner deletion: got=%+v err=%v", got, err)
	}
}
