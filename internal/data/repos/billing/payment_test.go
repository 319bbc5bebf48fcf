package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestPaymentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPaymentRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "payrepo@example.com")
	other := testutil.SeedUser(t, ctx, tx, "payrepo2@example.com")
	c := testutil.SeedCourse(t, ctx, tx, &u.ID, "course")

	older := &types.Payment{
		UserID:        u.ID,
		PaidCourseID:  &c.ID,
		Amount:        decimal.RequireFromString("1500.50"),
		PaymentMethod: types.PaymentMethodTransfer,
		PaymentDate:   time.Now().UTC().Add(-time.Hour),
	}
	newer := &types.Payment{
		UserID:        u.ID,
		PaidCourseID:  &c.ID,
		Amount:        decimal.RequireFromString("10"),
		PaymentMethod: types.PaymentMethodCash,
		PaymentDate:   time.Now().UTC(),
	}
	if _, err := repo.Create(dbc, []*types.Payment{older, newer}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	testutil.SeedPayment(t, ctx, tx, other.ID, nil, "3.00")

	got, err := repo.GetByID(dbc, older.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("1500.50")) || got.MinorUnits() != 150050 {
		t.Fatalf("amount round trip: %s (%d)", got.Amount, got.MinorUnits())
	}

	if err := repo.UpdateFields(dbc, older.ID, map[string]interface{}{
		"processor_session_id":  "cs_1",
		"processor_session_url": "https://checkout.test/cs_1",
		"processor_status":      "unpaid",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	bySession, err := repo.GetBySessionID(dbc, "cs_1")
	if err != nil || bySession == nil || bySession.ID != older.ID {
		t.Fatalf("GetBySessionID: got=%v err=%v", bySession, err)
	}
	if missing, err := repo.GetBySessionID(dbc, "cs_missing"); err != nil || missing != nil {
		t.Fatalf("GetBySessionID (missing): got=%v err=%v", missing, err)
	}

	mine, err := repo.List(dbc, ListFilter{UserID: &u.ID})
	if err != nil || len(mine) != 2 || mine[0].ID != newer.ID {
		t.Fatalf("List default ordering: err=%v rows=%v", err, mine)
	}
	asc, err := repo.List(dbc, ListFilter{UserID: &u.ID, Ordering: "payment_date"})
	if err != nil || len(asc) != 2 || asc[0].ID != older.ID {
		t.Fatalf("List ascending: err=%v rows=%v", err, asc)
	}
	cash, err := repo.List(dbc, ListFilter{PaymentMethod: types.PaymentMethodCash})
	if err != nil || len(cash) != 1 || cash[0].ID != newer.ID {
		t.Fatalf("List by method: err=%v rows=%v", err, cash)
	}
	all, err := repo.List(dbc, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all: err=%v len=%d", err, len(all))
	}
	byCourse, err := repo.List(dbc, ListFilter{PaidCourseID: &c.ID})
	if err != nil || len(byCourse) != 2 {
		t.Fatalf("List by course: err=%v len=%d", err, len(byCourse))
	}
}
