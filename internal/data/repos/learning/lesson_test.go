package learning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
)

func TestLessonRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, "lessonrepo@example.com")
	stranger := testutil.SeedUser(t, ctx, tx, "stranger@example.com")
	c := testutil.SeedCourse(t, ctx, tx, &owner.ID, "course")

	l := &types.Lesson{
		CourseID:    &c.ID,
		OwnerID:     &owner.ID,
		Title:       "intro",
		Description: "d",
		VideoURL:    "https://youtu.be/dQw4w9WgXcQ",
	}
	if _, err := repo.Create(dbc, []*types.Lesson{l}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 6; i++ {
		testutil.SeedLesson(t, ctx, tx, &c.ID, &stranger.ID, "other")
	}

	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{l.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if got, err := repo.GetScoped(dbc, Scope{OwnerID: &owner.ID}, l.ID); err != nil || got == nil {
		t.Fatalf("GetScoped (owner): got=%v err=%v", got, err)
	}
	if got, err := repo.GetScoped(dbc, Scope{OwnerID: &stranger.ID}, l.ID); err != nil || got != nil {
		t.Fatalf("GetScoped (stranger): got=%v err=%v", got, err)
	}
	if got, err := repo.GetByCourseAndTitle(dbc, c.ID, "intro"); err != nil || got == nil || got.ID != l.ID {
		t.Fatalf("GetByCourseAndTitle: got=%v err=%v", got, err)
	}

	mine, total, err := repo.List(dbc, Scope{OwnerID: &owner.ID}, 0, 5)
	if err != nil || total != 1 || len(mine) != 1 {
		t.Fatalf("List (owner): total=%d len=%d err=%v", total, len(mine), err)
	}
	page, total, err := repo.List(dbc, Scope{}, 5, 5)
	if err != nil || total != 7 || len(page) != 2 {
		t.Fatalf("List (all, page 2): total=%d len=%d err=%v", total, len(page), err)
	}

	if err := repo.UpdateFields(dbc, l.ID, map[string]interface{}{"title": "renamed"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ := repo.GetByID(dbc, l.ID)
	if got.Title != "renamed" {
		t.Fatalf("UpdateFields: title=%q", got.Title)
	}

	pay := testutil.SeedPayment(t, ctx, tx, owner.ID, nil, "1.00")
	if err := tx.Model(&types.Payment{}).Where("id = ?", pay.ID).Update("paid_lesson_id", l.ID).Error; err != nil {
		t.Fatalf("link payment: %v", err)
	}
	if err := repo.Delete(dbc, l.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.GetByID(dbc, l.ID); got != nil {
		t.Fatal("lesson still present after Delete")
	}
	var p types.Payment
	if err := tx.First(&p, "id = ?", pay.ID).Error; err != nil || p.PaidLessonID != nil {
		t.Fatalf("payment lesson should be cleared: %+v err=%v", p, err)
	}
}
