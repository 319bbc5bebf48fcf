package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/gorm"
)

// Subscription is unique per (user, course); the index is what serializes concurrent toggles.
type Subscription struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_user_course,priority:1" json:"user_id"`
	User     *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	CourseID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_user_course,priority:2;index" json:"course_id"`
	Course   *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	IsActive bool       `gorm:"column:is_active;not null" json:"is_active"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "subscription" }

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
