package billing

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// ListFilter narrows payment listings. Zero values mean "no filter".
type ListFilter struct {
	UserID        *uuid.UUID
	PaidCourseID  *uuid.UUID
	PaidLessonID  *uuid.UUID
	PaymentMethod string
	// Ordering is payment_date or -payment_date.
	Ordering string
}

type PaymentRepo interface {
	Create(dbc dbctx.Context, payments []*types.Payment) ([]*types.Payment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Payment, error)
	GetBySessionID(dbc dbctx.Context, sessionID string) (*types.Payment, error)
	List(dbc dbctx.Context, f ListFilter) ([]*types.Payment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	repoLog := baseLog.With("repo", "PaymentRepo")
	return &paymentRepo{db: db, log: repoLog}
}

func (r *paymentRepo) Create(dbc dbctx.Context, payments []*types.Payment) ([]*types.Payment, error) {
	if len(payments) == 0 {
		return []*types.Payment{}, nil
	}
	if err := dbc.Or(r.db).Omit("User", "PaidCourse", "PaidLesson").Create(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Payment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.Payment
	if err := dbc.Or(r.db).Where("id = ?", id).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*types.Payment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	var p types.Payment
	if err := dbc.Or(r.db).Where("processor_session_id = ?", sessionID).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepo) List(dbc dbctx.Context, f ListFilter) ([]*types.Payment, error) {
	q := dbc.Or(r.db).Model(&types.Payment{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.PaidCourseID != nil {
		q = q.Where("paid_course_id = ?", *f.PaidCourseID)
	}
	if f.PaidLessonID != nil {
		q = q.Where("paid_lesson_id = ?", *f.PaidLessonID)
	}
	if m := strings.TrimSpace(f.PaymentMethod); m != "" {
		q = q.Where("payment_method = ?", m)
	}
	if strings.TrimSpace(f.Ordering) == "payment_date" {
		q = q.Order("payment_date ASC")
	} else {
		q = q.Order("payment_date DESC")
	}
	var results []*types.Payment
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.Or(r.db).
		Model(&types.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
