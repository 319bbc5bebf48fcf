package services

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestDeactivateInactiveUsers(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewInactivityService(e.log, e.users, 0)
	now := time.Now().UTC()
	old := now.Add(-31 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	stale := testutil.SeedUser(t, ctx, e.db, "stale@example.com")
	fresh := testutil.SeedUser(t, ctx, e.db, "fresh@example.com")
	never := testutil.SeedUser(t, ctx, e.db, "never@example.com")
	staff := testutil.SeedUser(t, ctx, e.db, "staff@example.com")
	root := testutil.SeedUser(t, ctx, e.db, "root@example.com")

	set := func(u *types.User, fields map[string]interface{}) {
		t.Helper()
		if err := e.db.Model(&types.User{}).Where("id = ?", u.ID).Updates(fields).Error; err != nil {
			t.Fatalf("update %s: %v", u.Email, err)
		}
	}
	set(stale, map[string]interface{}{"last_login": old})
	set(fresh, map[string]interface{}{"last_login": recent})
	set(staff, map[string]interface{}{"last_login": old, "is_staff": true})
	set(root, map[string]interface{}{"last_login": old, "is_superuser": true})

	n, err := svc.DeactivateInactiveUsers(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeactivateInactiveUsers: n=%d err=%v", n, err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	for _, tc := range []struct {
		u      *types.User
		active bool
	}{
		{stale, false}, {fresh, true}, {never, true}, {staff, true}, {root, true},
	} {
		got, _ := e.users.GetByID(dbc, tc.u.ID)
		if got.IsActive != tc.active {
			t.Fatalf("%s: is_active=%v want %v", tc.u.Email, got.IsActive, tc.active)
		}
	}

	if n, err := svc.DeactivateInactiveUsers(ctx, now); err != nil || n != 0 {
		t.Fatalf("second run should be a no-op: n=%d err=%v", n, err)
	}
}
