package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
)

type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string     `gorm:"not null;column:password" json:"-"`
	FirstName   string     `gorm:"not null;column:first_name" json:"first_name"`
	LastName    string     `gorm:"not null;column:last_name" json:"last_name"`
	Phone       *string    `gorm:"column:phone" json:"phone,omitempty"`
	City        *string    `gorm:"column:city" json:"city,omitempty"`
	AvatarURL   *string    `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Role        string     `gorm:"column:role;not null;index" json:"role"`
	IsActive    bool       `gorm:"column:is_active;not null;index" json:"is_active"`
	IsStaff     bool       `gorm:"column:is_staff;not null" json:"is_staff"`
	IsSuperuser bool       `gorm:"column:is_superuser;not null" json:"is_superuser"`
	LastLogin   *time.Time `gorm:"column:last_login;index" json:"last_login,omitempty"`

	DateJoined time.Time `gorm:"column:date_joined;not null;autoCreateTime" json:"date_joined"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}

func (u *User) IsModerator() bool { return u != nil && u.Role == RoleModerator }

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
