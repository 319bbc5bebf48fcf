package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const (
	SubscriptionAddedMessage   = "Subscription added"
	SubscriptionRemovedMessage = "Subscription removed"
)

type ToggleResult struct {
	Subscribed bool   `json:"subscribed"`
	Message    string `json:"message"`
}

type SubscriptionService interface {
	// Toggle flips the caller's subscription to courseID.
	Toggle(dbc dbctx.Context, courseID uuid.UUID) (*ToggleResult, error)
}

type subscriptionService struct {
	log        *logger.Logger
	subRepo    repos.SubscriptionRepo
	courseRepo repos.CourseRepo
}

func NewSubscriptionService(baseLog *logger.Logger, subRepo repos.SubscriptionRepo, courseRepo repos.CourseRepo) SubscriptionService {
	return &subscriptionService{
		log:        baseLog.With("service", "SubscriptionService"),
		subRepo:    subRepo,
		courseRepo: courseRepo,
	}
}

// Toggle relies on the (user, course) unique index rather than locking: a
// concurrent create that loses the race sees ErrDuplicate and reports the
// pair as subscribed; a concurrent delete that loses removes zero rows.
func (ss *subscriptionService) Toggle(dbc dbctx.Context, courseID uuid.UUID) (*ToggleResult, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	course, err := ss.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, errCourseNotFound
	}

	existing, err := ss.subRepo.Get(dbc, caller.UserID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if existing != nil {
		if _, err := ss.subRepo.DeleteByID(dbc, existing.ID); err != nil {
			return nil, fmt.Errorf("delete subscription: %w", err)
		}
		ss.log.Debug("Subscription removed", "user_id", caller.UserID, "course_id", course.ID)
		return &ToggleResult{Subscribed: false, Message: SubscriptionRemovedMessage}, nil
	}

	sub := &types.Subscription{UserID: caller.UserID, CourseID: course.ID, IsActive: true}
	if err := ss.subRepo.Create(dbc, sub); err != nil {
		if !errors.Is(err, repoerr.ErrDuplicate) {
			return nil, fmt.Errorf("create subscription: %w", err)
		}
		ss.log.Debug("Concurrent subscribe lost the race", "user_id", caller.UserID, "course_id", course.ID)
	}
	return &ToggleResult{Subscribed: true, Message: SubscriptionAddedMessage}, nil
}
