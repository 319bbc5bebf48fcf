package learning

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// Scope restricts reads to rows owned by OwnerID. A nil OwnerID means every row is visible.
type Scope struct {
	OwnerID *uuid.UUID
}

func (s Scope) apply(q *gorm.DB) *gorm.DB {
	if s.OwnerID == nil {
		return q
	}
	return q.Where("owner_id = ?", *s.OwnerID)
}

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	GetScoped(dbc dbctx.Context, scope Scope, courseID uuid.UUID) (*types.Course, error)
	GetByTitle(dbc dbctx.Context, title string) (*types.Course, error)
	List(dbc dbctx.Context, scope Scope, offset, limit int) ([]*types.Course, int64, error)
	UpdateFields(dbc dbctx.Context, courseID uuid.UUID, updates map[string]interface{}) error
	Touch(dbc dbctx.Context, courseID uuid.UUID, at time.Time) error
	Delete(dbc dbctx.Context, courseID uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func preloadLessons(q *gorm.DB) *gorm.DB {
	return q.Preload("Lessons", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.Or(r.db).Omit("Lessons").Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := dbc.Or(r.db).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	return r.GetScoped(dbc, Scope{}, courseID)
}

func (r *courseRepo) GetScoped(dbc dbctx.Context, scope Scope, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var c types.Course
	q := scope.apply(preloadLessons(dbc.Or(r.db)).Where("id = ?", courseID))
	if err := q.Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

func (r *courseRepo) GetByTitle(dbc dbctx.Context, title string) (*types.Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	var c types.Course
	if err := dbc.Or(r.db).Where("title = ?", title).Order("created_at ASC").Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, nil
	}
	return &c, nil
}

// List returns one page of visible courses, newest first, with their lessons.
func (r *courseRepo) List(dbc dbctx.Context, scope Scope, offset, limit int) ([]*types.Course, int64, error) {
	var total int64
	if err := scope.apply(dbc.Or(r.db).Model(&types.Course{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Course
	if total == 0 {
		return results, 0, nil
	}
	if err := scope.apply(preloadLessons(dbc.Or(r.db))).
		Order("created_at DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, courseID uuid.UUID, updates map[string]interface{}) error {
	if courseID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Or(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(updates).Error
}

// Touch bumps updated_at without modifying any other column.
func (r *courseRepo) Touch(dbc dbctx.Context, courseID uuid.UUID, at time.Time) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.Or(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		UpdateColumn("updated_at", at.UTC()).Error
}

// Delete removes the course. Lessons and payments referencing it are detached, subscriptions removed.
func (r *courseRepo) Delete(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.Or(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.Lesson{}).Where("course_id = ?", courseID).UpdateColumn("course_id", nil).Error; err != nil {
			return err
		}
		if err := txx.Model(&types.Payment{}).Where("paid_course_id = ?", courseID).UpdateColumn("paid_course_id", nil).Error; err != nil {
			return err
		}
		if err := txx.Where("course_id = ?", courseID).Delete(&types.Subscription{}).Error; err != nil {
			return err
		}
		return txx.Where("id = ?", courseID).Delete(&types.Course{}).Error
	})
}
