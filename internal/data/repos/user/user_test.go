package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.User{
		{
			Email:     " UserRepo@Example.com ",
			Password:  "pw",
			FirstName: "A",
			LastName:  "B",
			IsActive:  true,
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}
	if created[0].Email != "userrepo@example.com" || created[0].Role != types.RoleStudent {
		t.Fatalf("Create: email/role not normalized: %+v", created[0])
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	byEmail, err := repo.GetByEmail(dbc, "USERREPO@example.com")
	if err != nil || byEmail == nil || byEmail.ID != created[0].ID {
		t.Fatalf("GetByEmail: got=%v err=%v", byEmail, err)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID (missing): got=%v err=%v", missing, err)
	}

	exists, err := repo.EmailExists(dbc, created[0].Email)
	if err != nil || !exists {
		t.Fatalf("EmailExists: exists=%v err=%v", exists, err)
	}
	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil || exists {
		t.Fatalf("EmailExists (missing): exists=%v err=%v", exists, err)
	}

	ok, err := repo.SetRoleByEmail(dbc, created[0].Email, types.RoleModerator)
	if err != nil || !ok {
		t.Fatalf("SetRoleByEmail: ok=%v err=%v", ok, err)
	}

	if err := repo.UpdateFields(dbc, created[0].ID, map[string]interface{}{"first_name": "Z"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	reloaded, _ := repo.GetByID(dbc, created[0].ID)
	if reloaded.FirstName != "Z" || reloaded.Role != types.RoleModerator {
		t.Fatalf("reload: %+v", reloaded)
	}

	testutil.SeedUser(t, dbc.Ctx, tx, "second@example.com")
	page, total, err := repo.List(dbc, 0, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(page) != 1 {
		t.Fatalf("List: total=%d len=%d", total, len(page))
	}
}

func TestDeactivateInactive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	now := time.Now().UTC()
	stale := testutil.SeedUser(t, ctx, tx, "stale@example.com")
	fresh := testutil.SeedUser(t, ctx, tx, "fresh@example.com")
	staff := testutil.SeedUser(t, ctx, tx, "staff@example.com")
	never := testutil.SeedUser(t, ctx, tx, "never@example.com")

	_ = repo.TouchLastLogin(dbc, stale.ID, now.Add(-31*24*time.Hour))
	_ = repo.TouchLastLogin(dbc, fresh.ID, now.Add(-24*time.Hour))
	_ = repo.TouchLastLogin(dbc, staff.ID, now.Add(-60*24*time.Hour))
	_ = repo.UpdateFields(dbc, staff.ID, map[string]interface{}{"is_staff": true})

	cutoff := now.Add(-30 * 24 * time.Hour)
	n, err := repo.DeactivateInactive(dbc, cutoff)
	if err != nil {
		t.Fatalf("DeactivateInactive: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeactivateInactive: expected 1, got %d", n)
	}
	again, err := repo.DeactivateInactive(dbc, cutoff)
	if err != nil || again != 0 {
		t.Fatalf("DeactivateInactive (second run): n=%d err=%v", again, err)
	}

	for _, tc := range []struct {
		id     uuid.UUID
		active bool
	}{{stale.ID, false}, {fresh.ID, true}, {staff.ID, true}, {never.ID, true}} {
		u, _ := repo.GetByID(dbc, tc.id)
		if u.IsActive != tc.active {
			t.Fatalf("user %s: is_active=%v want %v", u.Email, u.IsActive, tc.active)
		}
	}
}

func TestDeleteKeepsOwnedContent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	owner := testutil.SeedUser(t, ctx, tx, "owner@example.com")
	course := testutil.SeedCourse(t, ctx, tx, &owner.ID, "Course")
	lesson := testutil.SeedLesson(t, ctx, tx, &course.ID, &owner.ID, "Lesson")
	testutil.SeedSubscription(t, ctx, tx, owner.ID, course.ID)
	testutil.SeedPayment(t, ctx, tx, owner.ID, &course.ID, "10.00")

	orphaned, err := repo.Delete(dbc, owner.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(orphaned) != 1 || orphaned[0] != course.ID {
		t.Fatalf("orphaned courses: got %v want [%s]", orphaned, course.ID)
	}

	var c types.Course
	if err := tx.First(&c, "id = ?", course.ID).Error; err != nil {
		t.Fatalf("course must survive owner deletion: %v", err)
	}
	if c.OwnerID != nil {
		t.Fatalf("course owner should be cleared, got %v", c.OwnerID)
	}
	var l types.Lesson
	if err := tx.First(&l, "id = ?", lesson.ID).Error; err != nil || l.OwnerID != nil {
		t.Fatalf("lesson owner should be cleared: %+v err=%v", l, err)
	}
	var subs, pays int64
	tx.Model(&types.Subscription{}).Where("user_id = ?", owner.ID).Count(&subs)
	tx.Model(&types.Payment{}).Where("user_id = ?", owner.ID).Count(&pays)
	if subs != 0 || pays != 0 {
		t.Fatalf("dependents not removed: subs=%d payments=%d", subs, pays)
	}
}
