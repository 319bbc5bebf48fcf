package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/cache"
	"github.com/yungbote/coursehub-backend/internal/jobs/pipeline/course_update_notify"
	"github.com/yungbote/coursehub-backend/internal/jobs/pipeline/inactive_user_sweep"
	jobruntime "github.com/yungbote/coursehub-backend/internal/jobs/runtime"
	"github.com/yungbote/coursehub-backend/internal/jobs/scheduler"
	"github.com/yungbote/coursehub-backend/internal/jobs/worker"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
	"github.com/yungbote/coursehub-backend/internal/temporalx"
	"github.com/yungbote/coursehub-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Auth         services.AuthService
	User         services.UserService
	Course       services.CourseService
	Lesson       services.LessonService
	Subscription services.SubscriptionService
	Payment      services.PaymentService
	JobService   services.JobService
	Notification services.NotificationService
	Inactivity   services.InactivityService

	JobRegistry    *jobruntime.Registry
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
	Scheduler      *scheduler.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	courseCache := cache.NewCourseCache(log, clients.Redis, cfg.CourseCacheTTL)

	authService := services.NewAuthService(db, log, repos.User, repos.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	userService := services.NewUserService(db, log, repos.User, repos.Payment, courseCache)
	courseService := services.NewCourseService(db, log, repos.Course, courseCache, clients.Bus)
	lessonService := services.NewLessonService(db, log, repos.Lesson, repos.Course, courseCache, clients.Bus)
	subscriptionService := services.NewSubscriptionService(log, repos.Subscription, repos.Course)
	paymentService := services.NewPaymentService(log, repos.Payment, repos.Course, repos.Lesson, clients.Payments, cfg.Checkout)

	tcfg := temporalx.LoadConfig()
	jobService := services.NewJobService(db, log, repos.JobRun, clients.Temporal, tcfg.TaskQueue)
	notificationService := services.NewNotificationService(log, repos.Course, repos.Subscription, jobService, clients.Mail, services.NotificationConfig{
		Debounce:    cfg.NotifyDebounce,
		Concurrency: cfg.NotifyConcurrency,
	})
	inactivityService := services.NewInactivityService(log, repos.User, cfg.InactiveAfter)

	// The redis bus delivers every event to every instance; API processes own scheduling.
	if cfg.RunServer {
		clients.Bus.Subscribe(notificationService.HandleCourseChanged)
	}

	jobRegistry := jobruntime.NewRegistry()
	if err := jobRegistry.Register(course_update_notify.New(log, notificationService)); err != nil {
		return Services{}, err
	}
	if err := jobRegistry.Register(inactive_user_sweep.New(log, inactivityService)); err != nil {
		return Services{}, err
	}

	var (
		localWorker    *worker.Worker
		temporalRunner *temporalworker.Runner
		sched          *scheduler.Scheduler
	)
	if cfg.RunWorker {
		if clients.Temporal != nil {
			w, err := temporalworker.NewRunner(log, tcfg, clients.Temporal, db, repos.JobRun, jobRegistry)
			if err != nil {
				return Services{}, fmt.Errorf("init temporal worker: %w", err)
			}
			temporalRunner = w
		} else {
			localWorker = worker.NewWorker(db, log, repos.JobRun, jobRegistry, worker.ConfigFromEnv())
		}
		schedCfg := scheduler.ConfigFromEnv()
		schedCfg.SweepInterval = cfg.InactiveSweepInterval
		sched = scheduler.New(log, jobService, clients.Redis, schedCfg)
	}

	return Services{
		Auth:           authService,
		User:           userService,
		Course:         courseService,
		Lesson:         lessonService,
		Subscription:   subscriptionService,
		Payment:        paymentService,
		JobService:     jobService,
		Notification:   notificationService,
		Inactivity:     inactivityService,
		JobRegistry:    jobRegistry,
		JobWorker:      localWorker,
		TemporalWorker: temporalRunner,
		Scheduler:      sched,
	}, nil
}
