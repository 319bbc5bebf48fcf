package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	jobtypes "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/events"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
)

const (
	DefaultNotifyDebounce    = 4 * time.Hour
	defaultNotifyConcurrency = 8

	SkipCourseNotFound = "course_not_found"
	SkipDebounced      = "debounced"
)

type NotifyResult struct {
	CourseID uuid.UUID `json:"course_id"`
	Sent     int       `json:"sent"`
	Skipped  string    `json:"skipped,omitempty"`
}

type NotificationService interface {
	// HandleCourseChanged schedules (or pushes back) the notify job for the course.
	HandleCourseChanged(ctx context.Context, ev events.CourseContentChanged) error
	// NotifyCourseSubscribers emails every active subscriber unless the course
	// changed within the debounce window.
	NotifyCourseSubscribers(ctx context.Context, courseID uuid.UUID, now time.Time) (*NotifyResult, error)
}

type NotificationConfig struct {
	Debounce    time.Duration
	Concurrency int
}

type notificationService struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
	subRepo    repos.SubscriptionRepo
	jobs       JobService
	mail       sendgrid.Client
	debounce   time.Duration
	limit      int
}

func NewNotificationService(
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	subRepo repos.SubscriptionRepo,
	jobs JobService,
	mail sendgrid.Client,
	cfg NotificationConfig,
) NotificationService {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultNotifyDebounce
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = defaultNotifyConcurrency
	}
	return &notificationService{
		log:        baseLog.With("service", "NotificationService"),
		courseRepo: courseRepo,
		subRepo:    subRepo,
		jobs:       jobs,
		mail:       mail,
		debounce:   cfg.Debounce,
		limit:      cfg.Concurrency,
	}
}

func (ns *notificationService) HandleCourseChanged(ctx context.Context, ev events.CourseContentChanged) error {
	if ev.CourseID == uuid.Nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	runAfter := at.UTC().Add(ns.debounce)
	dbc := dbctx.Context{Ctx: ctx}

	courseID := ev.CourseID
	payload := map[string]any{
		"course_id": courseID.String(),
		"reason":    ev.Reason,
	}

	// Every API replica receives the event. The unique index on queued jobs per
	// course lets one insert win; the others fall back to pushing it back.
	for attempt := 0; attempt < 3; attempt++ {
		queued, err := ns.jobs.GetQueuedForEntity(dbc, jobtypes.TypeCourseUpdateNotify, jobtypes.EntityCourse, courseID)
		if err != nil {
			return fmt.Errorf("find queued notify job: %w", err)
		}
		if queued != nil {
			moved, err := ns.jobs.Reschedule(dbc, queued.ID, runAfter)
			if err != nil {
				return err
			}
			if moved {
				ns.log.Debug("Notify job pushed back", "course_id", courseID, "job_id", queued.ID, "run_after", runAfter)
				return nil
			}
			// Claimed between lookup and update; queue a fresh one.
		}

		job, err := ns.jobs.Enqueue(dbc, uuid.Nil, jobtypes.TypeCourseUpdateNotify, jobtypes.EntityCourse, &courseID, payload, &runAfter)
		if errors.Is(err, repoerr.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("enqueue notify job: %w", err)
		}
		ns.log.Debug("Notify job queued", "course_id", courseID, "job_id", job.ID, "run_after", runAfter)
		return nil
	}
	return fmt.Errorf("enqueue notify job: queue for course %s kept changing", courseID)
}

func (ns *notificationService) NotifyCourseSubscribers(ctx context.Context, courseID uuid.UUID, now time.Time) (*NotifyResult, error) {
	res := &NotifyResult{CourseID: courseID}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	dbc := dbctx.Context{Ctx: ctx}

	var course *types.Course
	if courseID != uuid.Nil {
		c, err := ns.courseRepo.GetByID(dbc, courseID)
		if err != nil {
			return nil, fmt.Errorf("get course: %w", err)
		}
		course = c
	}
	if course == nil {
		ns.log.Warn("Course not found; skipping notification", "course_id", courseID)
		res.Skipped = SkipCourseNotFound
		return res, nil
	}
	if course.UpdatedAt.After(now.Add(-ns.debounce)) {
		ns.log.Info("Course changed within debounce window; skipping notification",
			"course_id", courseID,
			"updated_at", course.UpdatedAt,
		)
		res.Skipped = SkipDebounced
		return res, nil
	}

	subs, err := ns.subRepo.ListActiveByCourse(dbc, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	var sent int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ns.limit)
	for _, sub := range subs {
		if sub == nil || sub.User == nil || strings.TrimSpace(sub.User.Email) == "" {
			continue
		}
		u := sub.User
		g.Go(func() error {
			_, err := ns.mail.Send(gctx, courseUpdateEmail(course, u))
			if err != nil {
				observability.Current().IncEmailSent(jobtypes.TypeCourseUpdateNotify, "error")
				return fmt.Errorf("send to user %s: %w", u.ID, err)
			}
			observability.Current().IncEmailSent(jobtypes.TypeCourseUpdateNotify, "ok")
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	err = g.Wait()
	res.Sent = int(atomic.LoadInt64(&sent))
	if err != nil {
		return res, err
	}
	ns.log.Info("Course update notifications sent", "course_id", course.ID, "sent", res.Sent)
	return res, nil
}

func courseUpdateEmail(course *types.Course, u *types.User) sendgrid.SendEmailRequest {
	greeting := strings.TrimSpace(u.FirstName)
	if greeting == "" {
		greeting = u.Email
	}
	return sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: u.Email, Name: u.FullName()}},
		Subject:    fmt.Sprintf("[Update] Course '%s' updated!", course.Title),
		Text:       fmt.Sprintf("Hello, %s!\n\nThe course \"%s\" has been updated. Come and see what's new!\n", greeting, course.Title),
		Categories: []string{jobtypes.TypeCourseUpdateNotify},
		CustomArgs: map[string]string{"course_id": course.ID.String()},
	}
}
