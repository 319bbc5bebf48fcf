package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/cache"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/events"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
)

type LessonInput struct {
	CourseID    *uuid.UUID
	Title       *string
	Description *string
	PreviewURL  *string
	VideoURL    *string
}

type LessonService interface {
	Create(dbc dbctx.Context, in LessonInput) (*types.Lesson, error)
	List(dbc dbctx.Context, page pagination.Page) ([]*types.Lesson, int64, error)
	Get(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error)
	Update(dbc dbctx.Context, lessonID uuid.UUID, in LessonInput, partial bool) (*types.Lesson, error)
	Delete(dbc dbctx.Context, lessonID uuid.UUID) error
}

type lessonService struct {
	db         *gorm.DB
	log        *logger.Logger
	lessonRepo repos.LessonRepo
	courseRepo repos.CourseRepo
	cache      cache.CourseCache
	bus        events.Bus
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lessonRepo repos.LessonRepo,
	courseRepo repos.CourseRepo,
	courseCache cache.CourseCache,
	bus events.Bus,
) LessonService {
	serviceLog := baseLog.With("service", "LessonService")
	if courseCache == nil {
		courseCache = cache.NewCourseCache(serviceLog, nil, 0)
	}
	return &lessonService{
		db:         db,
		log:        serviceLog,
		lessonRepo: lessonRepo,
		courseRepo: courseRepo,
		cache:      courseCache,
		bus:        bus,
	}
}

var errLessonNotFound = apierr.NotFound("not_found", "No Lesson matches the given query.")

func validateVideoField(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apierr.Validation("video_url", "This field is required.")
	}
	if err := ValidateVideoURL(strings.TrimSpace(raw)); err != nil {
		return apierr.Validation("video_url", err.Error())
	}
	return nil
}

func (ls *lessonService) requireCourse(dbc dbctx.Context, courseID uuid.UUID) error {
	course, err := ls.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return apierr.Validation("course_id", fmt.Sprintf("Invalid pk %q - object does not exist.", courseID.String()))
	}
	return nil
}

func (ls *lessonService) Create(dbc dbctx.Context, in LessonInput) (*types.Lesson, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	if in.CourseID == nil || *in.CourseID == uuid.Nil {
		return nil, apierr.Validation("course_id", "This field is required.")
	}
	if in.Title == nil {
		return nil, validateTitle("", true)
	}
	if err := validateTitle(*in.Title, true); err != nil {
		return nil, err
	}
	if in.Description == nil {
		return nil, validateDescription("")
	}
	if err := validateDescription(*in.Description); err != nil {
		return nil, err
	}
	if in.VideoURL == nil {
		return nil, validateVideoField("")
	}
	if err := validateVideoField(*in.VideoURL); err != nil {
		return nil, err
	}

	owner := caller.UserID
	courseID := *in.CourseID
	lesson := &types.Lesson{
		CourseID:    &courseID,
		OwnerID:     &owner,
		Title:       strings.TrimSpace(*in.Title),
		Description: strings.TrimSpace(*in.Description),
		VideoURL:    strings.TrimSpace(*in.VideoURL),
	}
	if in.PreviewURL != nil {
		lesson.PreviewURL = nullableString(*in.PreviewURL)
	}

	now := time.Now().UTC()
	err = runInTx(ls.db, dbc, func(inner dbctx.Context) error {
		if err := ls.requireCourse(inner, courseID); err != nil {
			return err
		}
		if _, err := ls.lessonRepo.Create(inner, []*types.Lesson{lesson}); err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}
		return ls.courseRepo.Touch(inner, courseID, now)
	})
	if err != nil {
		return nil, err
	}
	ls.afterWrite(dbc, events.ReasonLessonCreated, now, courseID)
	ls.log.Info("Lesson created", "lesson_id", lesson.ID, "course_id", courseID, "owner_id", owner)
	return lesson, nil
}

func (ls *lessonService) List(dbc dbctx.Context, page pagination.Page) ([]*types.Lesson, int64, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := ls.lessonRepo.List(dbc, ScopeFor(caller), page.Offset(), page.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}
	if err := pagination.CheckRange(page, total); err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []*types.Lesson{}
	}
	return rows, total, nil
}

func (ls *lessonService) Get(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	lesson, err := ls.lessonRepo.GetScoped(dbc, ScopeFor(caller), lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, errLessonNotFound
	}
	return lesson, nil
}

func (ls *lessonService) Update(dbc dbctx.Context, lessonID uuid.UUID, in LessonInput, partial bool) (*types.Lesson, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	lesson, err := ls.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, errLessonNotFound
	}
	if !CanModify(caller, methodFor(partial), lesson.OwnerID) {
		return nil, errNoPermission
	}

	updates := map[string]interface{}{}
	var newCourseID *uuid.UUID
	switch {
	case in.CourseID != nil && *in.CourseID != uuid.Nil:
		id := *in.CourseID
		newCourseID = &id
		updates["course_id"] = id
	case !partial:
		return nil, apierr.Validation("course_id", "This field is required.")
	}
	switch {
	case in.Title != nil:
		if err := validateTitle(*in.Title, false); err != nil {
			return nil, err
		}
		updates["title"] = strings.TrimSpace(*in.Title)
	case !partial:
		return nil, validateTitle("", true)
	}
	switch {
	case in.Description != nil:
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
		updates["description"] = strings.TrimSpace(*in.Description)
	case !partial:
		return nil, validateDescription("")
	}
	switch {
	case in.VideoURL != nil:
		if err := validateVideoField(*in.VideoURL); err != nil {
			return nil, err
		}
		updates["video_url"] = strings.TrimSpace(*in.VideoURL)
	case !partial:
		return nil, validateVideoField("")
	}
	if in.PreviewURL != nil {
		updates["preview_url"] = nullableString(*in.PreviewURL)
	}

	now := time.Now().UTC()
	updates["updated_at"] = now
	touched := courseIDs(lesson.CourseID, newCourseID)
	err = runInTx(ls.db, dbc, func(inner dbctx.Context) error {
		if newCourseID != nil {
			if err := ls.requireCourse(inner, *newCourseID); err != nil {
				return err
			}
		}
		if err := ls.lessonRepo.UpdateFields(inner, lesson.ID, updates); err != nil {
			return fmt.Errorf("update lesson: %w", err)
		}
		for _, id := range touched {
			if err := ls.courseRepo.Touch(inner, id, now); err != nil {
				return fmt.Errorf("touch course: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ls.afterWrite(dbc, events.ReasonLessonUpdated, now, touched...)

	fresh, err := ls.lessonRepo.GetByID(dbc, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("reload lesson: %w", err)
	}
	if fresh == nil {
		return nil, errLessonNotFound
	}
	return fresh, nil
}

func (ls *lessonService) Delete(dbc dbctx.Context, lessonID uuid.UUID) error {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return err
	}
	lesson, err := ls.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		return fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return errLessonNotFound
	}
	if !CanModify(caller, methodDelete, lesson.OwnerID) {
		return errNoPermission
	}
	now := time.Now().UTC()
	touched := courseIDs(lesson.CourseID, nil)
	err = runInTx(ls.db, dbc, func(inner dbctx.Context) error {
		if err := ls.lessonRepo.Delete(inner, lesson.ID); err != nil {
			return fmt.Errorf("delete lesson: %w", err)
		}
		for _, id := range touched {
			if err := ls.courseRepo.Touch(inner, id, now); err != nil {
				return fmt.Errorf("touch course: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	ls.afterWrite(dbc, events.ReasonLessonDeleted, now, touched...)
	ls.log.Info("Lesson deleted", "lesson_id", lesson.ID, "actor_id", caller.UserID)
	return nil
}

func (ls *lessonService) afterWrite(dbc dbctx.Context, reason string, at time.Time, courses ...uuid.UUID) {
	ls.cache.Invalidate(dbc.Ctx, courses...)
	for _, id := range courses {
		publishCourseChanged(dbc.Ctx, ls.log, ls.bus, id, reason, at)
	}
}

func courseIDs(current, next *uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	if current != nil && *current != uuid.Nil {
		out = append(out, *current)
	}
	if next != nil && *next != uuid.Nil && (current == nil || *next != *current) {
		out = append(out, *next)
	}
	return out
}
