package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/http"
	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Auth    *httpH.AuthHandler
	User    *httpH.UserHandler
	Course  *httpH.CourseHandler
	Lesson  *httpH.LessonHandler
	Payment *httpH.PaymentHandler
}

type Middleware struct {
	Auth      *httpMW.AuthMiddleware
	RateLimit *httpMW.RateLimiter
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(db),
		Auth:    httpH.NewAuthHandler(services.Auth),
		User:    httpH.NewUserHandler(services.User),
		Course:  httpH.NewCourseHandler(log, services.Course, services.Subscription),
		Lesson:  httpH.NewLessonHandler(services.Lesson),
		Payment: httpH.NewPaymentHandler(log, services.Payment),
	}
}

func wireMiddleware(log *logger.Logger, services Services, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      httpMW.NewAuthMiddleware(log, services.Auth),
		RateLimit: httpMW.NewRateLimiter(log, clients.Redis),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) (*gin.Engine, error) {
	if err := http.RegisterValidators(); err != nil {
		return nil, err
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		RateLimiter:     middleware.RateLimit,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		UserHandler:     handlers.User,
		CourseHandler:   handlers.Course,
		LessonHandler:   handlers.Lesson,
		PaymentHandler:  handlers.Payment,
		HealthHandler:   handlers.Health,
		LoginRateLimit:  cfg.RateLimitLogin,
		LoginRateWindow: cfg.RateLimitWindow,
	}), nil
}
