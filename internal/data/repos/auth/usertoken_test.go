package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserTokenRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "usertokenrepo@example.com")

	makeToken := func(access, refresh string, exp time.Time) *types.UserToken {
		return &types.UserToken{
			ID:           uuid.New(),
			UserID:       u.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresAt:    exp,
		}
	}

	t1 := makeToken("access-1", "refresh-1", time.Now().UTC().Add(time.Hour))
	t2 := makeToken("access-2", "refresh-2", time.Now().UTC().Add(-time.Hour))
	if _, err := repo.Create(dbc, []*types.UserToken{t1, t2}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{t1.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil || len(rows) != 2 {
		t.Fatalf("GetByUserIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByAccessTokens(dbc, []string{t1.AccessToken}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByAccessTokens: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByRefreshTokens(dbc, []string{t1.RefreshToken}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByRefreshTokens: err=%v len=%d", err, len(rows))
	}

	n, err := repo.DeleteExpired(dbc, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: n=%d err=%v", n, err)
	}

	if err := repo.DeleteByIDs(dbc, []uuid.UUID{t1.ID}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	if rows, err := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil || len(rows) != 0 {
		t.Fatalf("after delete: err=%v len=%d", err, len(rows))
	}

	t3 := makeToken("access-3", "refresh-3", time.Now().UTC().Add(time.Hour))
	if _, err := repo.Create(dbc, []*types.UserToken{t3}); err != nil {
		t.Fatalf("Create t3: %v", err)
	}
	if err := repo.DeleteByUserIDs(dbc, []uuid.UUID{u.ID}); err != nil {
		t.Fatalf("DeleteByUserIDs: %v", err)
	}
	if rows, _ := repo.GetByUserIDs(dbc, []uuid.UUID{u.ID}); len(rows) != 0 {
		t.Fatalf("DeleteByUserIDs left %d rows", len(rows))
	}
}
