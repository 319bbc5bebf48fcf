package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      types.RoleStudent,
		IsActive:  true,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedModerator(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, email)
	if err := tx.WithContext(ctx).Model(u).Update("role", types.RoleModerator).Error; err != nil {
		tb.Fatalf("seed moderator: %v", err)
	}
	u.Role = types.RoleModerator
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID *uuid.UUID, title string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		Title:       title,
		Description: "description",
		OwnerID:     ownerID,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID, ownerID *uuid.UUID, title string) *types.Lesson {
	tb.Helper()
	l := &types.Lesson{
		ID:          uuid.New(),
		CourseID:    courseID,
		OwnerID:     ownerID,
		Title:       title,
		Description: "description",
		VideoURL:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedSubscription(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) *types.Subscription {
	tb.Helper()
	s := &types.Subscription{
		ID:       uuid.New(),
		UserID:   userID,
		CourseID: courseID,
		IsActive: true,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subscription: %v", err)
	}
	return s
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID *uuid.UUID, amount string) *types.Payment {
	tb.Helper()
	p := &types.Payment{
		ID:            uuid.New(),
		UserID:        userID,
		PaidCourseID:  courseID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: types.PaymentMethodTransfer,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}

// SetUpdatedAt rewrites a timestamp column without triggering gorm's auto-update.
func SetUpdatedAt(tb testing.TB, ctx context.Context, tx *gorm.DB, model any, id uuid.UUID, at time.Time) {
	tb.Helper()
	if err := tx.WithContext(ctx).Model(model).Where("id = ?", id).UpdateColumn("updated_at", at.UTC()).Error; err != nil {
		tb.Fatalf("set updated_at: %v", err)
	}
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }
