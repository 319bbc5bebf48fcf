package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type SubscriptionRepo interface {
	Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Subscription, error)
	// Create returns repoerr.ErrDuplicate when the (user, course) pair already exists.
	Create(dbc dbctx.Context, sub *types.Subscription) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
	ListActiveByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Subscription, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Subscription, error)
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	repoLog := baseLog.With("repo", "SubscriptionRepo")
	return &subscriptionRepo{db: db, log: repoLog}
}

func (r *subscriptionRepo) Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Subscription, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var s types.Subscription
	if err := dbc.Or(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *subscriptionRepo) Create(dbc dbctx.Context, sub *types.Subscription) error {
	if sub == nil {
		return nil
	}
	// A savepoint keeps a unique violation from aborting an enclosing postgres transaction.
	err := dbc.Or(r.db).Transaction(func(txx *gorm.DB) error {
		return txx.Omit("User", "Course").Create(sub).Error
	})
	return repoerr.Map(err)
}

func (r *subscriptionRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, nil
	}
	res := dbc.Or(r.db).Where("id = ?", id).Delete(&types.Subscription{})
	return res.RowsAffected, res.Error
}

// ListActiveByCourse returns active subscriptions with their users loaded.
func (r *subscriptionRepo) ListActiveByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Subscription, error) {
	var results []*types.Subscription
	if courseID == uuid.Nil {
		return results, nil
	}
	if err := dbc.Or(r.db).
		Preload("User").
		Where("course_id = ? AND is_active = ?", courseID, true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *subscriptionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Subscription, error) {
	var results []*types.Subscription
	if userID == uuid.Nil {
		return results, nil
	}
	if err := dbc.Or(r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
