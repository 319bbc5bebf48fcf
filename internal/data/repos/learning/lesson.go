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

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error)
	GetScoped(dbc dbctx.Context, scope Scope, lessonID uuid.UUID) (*types.Lesson, error)
	GetByCourseAndTitle(dbc dbctx.Context, courseID uuid.UUID, title string) (*types.Lesson, error)
	List(dbc dbctx.Context, scope Scope, offset, limit int) ([]*types.Lesson, int64, error)
	UpdateFields(dbc dbctx.Context, lessonID uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, lessonID uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	repoLog := baseLog.With("repo", "LessonRepo")
	return &lessonRepo{db: db, log: repoLog}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.Or(r.db).Omit("Course", "Owner").Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if len(lessonIDs) == 0 {
		return results, nil
	}
	if err := dbc.Or(r.db).
		Where("id IN ?", lessonIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	return r.GetScoped(dbc, Scope{}, lessonID)
}

func (r *lessonRepo) GetScoped(dbc dbctx.Context, scope Scope, lessonID uuid.UUID) (*types.Lesson, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var l types.Lesson
	if err := scope.apply(dbc.Or(r.db).Where("id = ?", lessonID)).Limit(1).Find(&l).Error; err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *lessonRepo) GetByCourseAndTitle(dbc dbctx.Context, courseID uuid.UUID, title string) (*types.Lesson, error) {
	title = strings.TrimSpace(title)
	if courseID == uuid.Nil || title == "" {
		return nil, nil
	}
	var l types.Lesson
	if err := dbc.Or(r.db).
		Where("course_id = ? AND title = ?", courseID, title).
		Limit(1).
		Find(&l).Error; err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *lessonRepo) List(dbc dbctx.Context, scope Scope, offset, limit int) ([]*types.Lesson, int64, error) {
	var total int64
	if err := scope.apply(dbc.Or(r.db).Model(&types.Lesson{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Lesson
	if total == 0 {
		return results, 0, nil
	}
	if err := scope.apply(dbc.Or(r.db)).
		Order("created_at DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *lessonRepo) UpdateFields(dbc dbctx.Context, lessonID uuid.UUID, updates map[string]interface{}) error {
	if lessonID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.Or(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", lessonID).
		Updates(updates).Error
}

func (r *lessonRepo) Delete(dbc dbctx.Context, lessonID uuid.UUID) error {
	if lessonID == uuid.Nil {
		return nil
	}
	return dbc.Or(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.Payment{}).Where("paid_lesson_id = ?", lessonID).UpdateColumn("paid_lesson_id", nil).Error; err != nil {
			return err
		}
		return txx.Where("id = ?", lessonID).Delete(&types.Lesson{}).Error
	})
}
