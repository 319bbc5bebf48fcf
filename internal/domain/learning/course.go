package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/gorm"
)

const TitleMaxLen = 200

type Course struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string     `gorm:"column:title;size:200;not null" json:"title"`
	Description string     `gorm:"column:description;type:text;not null" json:"description"`
	PreviewURL  *string    `gorm:"column:preview_url" json:"preview,omitempty"`
	OwnerID     *uuid.UUID `gorm:"type:uuid;column:owner_id;index" json:"owner_id,omitempty"`
	Owner       *user.User `gorm:"constraint:OnDelete:SET NULL;foreignKey:OwnerID;references:ID" json:"-"`

	Lessons []Lesson `gorm:"foreignKey:CourseID;references:ID;constraint:OnDelete:SET NULL" json:"lessons,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
