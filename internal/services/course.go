package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/cache"
	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/domain/learning"
	"github.com/yungbote/coursehub-backend/internal/events"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
)

type CourseView struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Preview      *string        `json:"preview"`
	OwnerID      *uuid.UUID     `json:"owner_id"`
	Lessons      []types.Lesson `json:"lessons"`
	LessonsCount int            `json:"lessons_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func NewCourseView(c *types.Course) CourseView {
	lessons := c.Lessons
	if lessons == nil {
		lessons = []types.Lesson{}
	}
	return CourseView{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Preview:      c.PreviewURL,
		OwnerID:      c.OwnerID,
		Lessons:      lessons,
		LessonsCount: len(lessons),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// CourseInput carries writable course fields. Nil means "not provided".
type CourseInput struct {
	Title       *string
	Description *string
	PreviewURL  *string
}

type CourseService interface {
	Create(dbc dbctx.Context, in CourseInput) (*CourseView, error)
	List(dbc dbctx.Context, page pagination.Page) ([]CourseView, int64, error)
	Get(dbc dbctx.Context, courseID uuid.UUID) (*CourseView, error)
	// Update applies in; partial=false requires every required field (PUT semantics).
	Update(dbc dbctx.Context, courseID uuid.UUID, in CourseInput, partial bool) (*CourseView, error)
	Delete(dbc dbctx.Context, courseID uuid.UUID) error
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	courseRepo repos.CourseRepo
	cache      cache.CourseCache
	bus        events.Bus
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	courseCache cache.CourseCache,
	bus events.Bus,
) CourseService {
	serviceLog := baseLog.With("service", "CourseService")
	if courseCache == nil {
		courseCache = cache.NewCourseCache(serviceLog, nil, 0)
	}
	return &courseService{
		db:         db,
		log:        serviceLog,
		courseRepo: courseRepo,
		cache:      courseCache,
		bus:        bus,
	}
}

var errCourseNotFound = apierr.NotFound("not_found", "No Course matches the given query.")

func validateTitle(title string, required bool) error {
	title = strings.TrimSpace(title)
	if title == "" {
		if required {
			return apierr.Validation("title", "This field is required.")
		}
		return apierr.Validation("title", "This field may not be blank.")
	}
	if utf8.RuneCountInString(title) > learning.TitleMaxLen {
		return apierr.Validation("title", fmt.Sprintf("Ensure this field has no more than %d characters.", learning.TitleMaxLen))
	}
	return nil
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return apierr.Validation("description", "This field is required.")
	}
	return nil
}

func (cs *courseService) Create(dbc dbctx.Context, in CourseInput) (*CourseView, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
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
	owner := caller.UserID
	course := &types.Course{
		Title:       strings.TrimSpace(*in.Title),
		Description: strings.TrimSpace(*in.Description),
		OwnerID:     &owner,
	}
	if in.PreviewURL != nil {
		course.PreviewURL = nullableString(*in.PreviewURL)
	}
	if _, err := cs.courseRepo.Create(dbc, []*types.Course{course}); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	cs.log.Info("Course created", "course_id", course.ID, "owner_id", owner)
	view := NewCourseView(course)
	return &view, nil
}

func (cs *courseService) List(dbc dbctx.Context, page pagination.Page) ([]CourseView, int64, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := cs.courseRepo.List(dbc, ScopeFor(caller), page.Offset(), page.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	if err := pagination.CheckRange(page, total); err != nil {
		return nil, 0, err
	}
	out := make([]CourseView, 0, len(rows))
	for _, c := range rows {
		out = append(out, NewCourseView(c))
	}
	return out, total, nil
}

// Get serves from the detail cache when possible. Visibility is checked after
// the lookup so cached entries are shared across callers.
func (cs *courseService) Get(dbc dbctx.Context, courseID uuid.UUID) (*CourseView, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	course, ok := cs.cache.Get(dbc.Ctx, courseID)
	if !ok {
		course, err = cs.courseRepo.GetByID(dbc, courseID)
		if err != nil {
			return nil, fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return nil, errCourseNotFound
		}
		if dbc.Tx == nil {
			cs.cache.Set(dbc.Ctx, course)
		}
	}
	if !Sees(caller, course.OwnerID) {
		return nil, errCourseNotFound
	}
	view := NewCourseView(course)
	return &view, nil
}

func (cs *courseService) Update(dbc dbctx.Context, courseID uuid.UUID, in CourseInput, partial bool) (*CourseView, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var fresh *types.Course
	err = runInTx(cs.db, dbc, func(inner dbctx.Context) error {
		course, err := cs.courseRepo.GetByID(inner, courseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return errCourseNotFound
		}
		if !CanModify(caller, methodFor(partial), course.OwnerID) {
			return errNoPermission
		}
		updates, err := courseUpdates(in, partial)
		if err != nil {
			return err
		}
		updates["updated_at"] = now
		if err := cs.courseRepo.UpdateFields(inner, course.ID, updates); err != nil {
			return fmt.Errorf("update course: %w", err)
		}
		fresh, err = cs.courseRepo.GetByID(inner, course.ID)
		if err != nil {
			return fmt.Errorf("reload course: %w", err)
		}
		if fresh == nil {
			return errCourseNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cs.cache.Invalidate(dbc.Ctx, fresh.ID)
	cs.publish(dbc.Ctx, fresh.ID, events.ReasonCourseUpdated, now)

	view := NewCourseView(fresh)
	return &view, nil
}

// courseUpdates validates in and returns the columns to write. PUT requires
// title and description.
func courseUpdates(in CourseInput, partial bool) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
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
	if in.PreviewURL != nil {
		updates["preview_url"] = nullableString(*in.PreviewURL)
	}
	return updates, nil
}

func (cs *courseService) Delete(dbc dbctx.Context, courseID uuid.UUID) error {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return err
	}
	err = runInTx(cs.db, dbc, func(inner dbctx.Context) error {
		course, err := cs.courseRepo.GetByID(inner, courseID)
		if err != nil {
			return fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return errCourseNotFound
		}
		if !CanModify(caller, methodDelete, course.OwnerID) {
			return errNoPermission
		}
		if err := cs.courseRepo.Delete(inner, course.ID); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cs.cache.Invalidate(dbc.Ctx, courseID)
	cs.log.Info("Course deleted", "course_id", courseID, "actor_id", caller.UserID)
	return nil
}

func (cs *courseService) publish(ctx context.Context, courseID uuid.UUID, reason string, at time.Time) {
	publishCourseChanged(ctx, cs.log, cs.bus, courseID, reason, at)
}

// publishCourseChanged never fails the caller: the write has already happened.
func publishCourseChanged(ctx context.Context, log *logger.Logger, bus events.Bus, courseID uuid.UUID, reason string, at time.Time) {
	if bus == nil || courseID == uuid.Nil {
		return
	}
	ev := events.CourseContentChanged{CourseID: courseID, Reason: reason, At: at}
	if err := bus.Publish(ctx, ev); err != nil {
		log.Warn("Publishing course change failed", "course_id", courseID, "reason", reason, "error", err)
	}
}
