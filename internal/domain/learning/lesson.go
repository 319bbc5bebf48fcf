package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/gorm"
)

type Lesson struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    *uuid.UUID `gorm:"type:uuid;column:course_id;index" json:"course_id,omitempty"`
	Course      *Course    `gorm:"constraint:OnDelete:SET NULL;foreignKey:CourseID;references:ID" json:"-"`
	OwnerID     *uuid.UUID `gorm:"type:uuid;column:owner_id;index" json:"owner_id,omitempty"`
	Owner       *user.User `gorm:"constraint:OnDelete:SET NULL;foreignKey:OwnerID;references:ID" json:"-"`
	Title       string     `gorm:"column:title;size:200;not null" json:"title"`
	Description string     `gorm:"column:description;type:text;not null" json:"description"`
	PreviewURL  *string    `gorm:"column:preview_url" json:"preview,omitempty"`
	VideoURL    string     `gorm:"column:video_url;not null" json:"video_url"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
