package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yungbote/coursehub-backend/internal/domain/learning"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
	"gorm.io/gorm"
)

const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

var MinAmount = decimal.RequireFromString("0.01")

func ValidMethod(m string) bool { return m == MethodCash || m == MethodTransfer }

type Payment struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *user.User       `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	PaymentDate  time.Time        `gorm:"column:payment_date;not null;index;autoCreateTime" json:"payment_date"`
	PaidCourseID *uuid.UUID       `gorm:"type:uuid;column:paid_course_id;index" json:"paid_course,omitempty"`
	PaidCourse   *learning.Course `gorm:"constraint:OnDelete:SET NULL;foreignKey:PaidCourseID;references:ID" json:"-"`
	PaidLessonID *uuid.UUID       `gorm:"type:uuid;column:paid_lesson_id;index" json:"paid_lesson,omitempty"`
	PaidLesson   *learning.Lesson `gorm:"constraint:OnDelete:SET NULL;foreignKey:PaidLessonID;references:ID" json:"-"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:numeric(10,2);not null" json:"amount"`

	PaymentMethod string `gorm:"column:payment_method;size:20;not null;index" json:"payment_method"`

	ProcessorSessionID  *string `gorm:"column:processor_session_id;uniqueIndex" json:"session_id,omitempty"`
	ProcessorSessionURL *string `gorm:"column:processor_session_url" json:"session_url,omitempty"`
	ProcessorStatus     *string `gorm:"column:processor_status" json:"status,omitempty"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// MinorUnits converts Amount to the smallest currency unit, rounding half away from zero.
func (p *Payment) MinorUnits() int64 {
	return p.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
