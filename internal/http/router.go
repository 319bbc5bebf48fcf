package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthHandler    *httpH.AuthHandler
	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter
	Metrics        *observability.Metrics
	CORSOrigins    string

	UserHandler    *httpH.UserHandler
	CourseHandler  *httpH.CourseHandler
	LessonHandler  *httpH.LessonHandler
	PaymentHandler *httpH.PaymentHandler

	HealthHandler *httpH.HealthHandler

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// RegisterValidators installs the custom binding tags and reports fields by their JSON names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterTagNameFunc(response.JSONTagName)
	return services.RegisterVideoURLValidation(v)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("coursehub-api", otelgin.WithFilter(observability.TraceRequest)))
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/users", cfg.AuthHandler.Register)
			login := []gin.HandlerFunc{}
			if cfg.RateLimiter != nil {
				limit, window := cfg.LoginRateLimit, cfg.LoginRateWindow
				if limit <= 0 {
					limit = 10
				}
				if window <= 0 {
					window = time.Minute
				}
				login = append(login, cfg.RateLimiter.Limit("login", limit, window))
			}
			login = append(login, cfg.AuthHandler.Login)
			api.POST("/login", login...)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/refresh", cfg.AuthHandler.Refresh)
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Users
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.GET("/users", cfg.UserHandler.List)
			protected.GET("/users/:id", cfg.UserHandler.Get)
			protected.PUT("/users/:id", cfg.UserHandler.Update)
			protected.PATCH("/users/:id", cfg.UserHandler.Update)
			protected.DELETE("/users/:id", cfg.UserHandler.Delete)
		}

		// Courses
		if cfg.CourseHandler != nil {
			protected.GET("/courses", cfg.CourseHandler.List)
			protected.POST("/courses", cfg.CourseHandler.Create)
			protected.GET("/courses/:id", cfg.CourseHandler.Get)
			protected.PUT("/courses/:id", cfg.CourseHandler.Replace)
			protected.PATCH("/courses/:id", cfg.CourseHandler.Patch)
			protected.DELETE("/courses/:id", cfg.CourseHandler.Delete)
			protected.POST("/courses/:id/subscription", cfg.CourseHandler.ToggleSubscription)
		}

		// Lessons
		if cfg.LessonHandler != nil {
			protected.GET("/lessons", cfg.LessonHandler.List)
			protected.POST("/lessons", cfg.LessonHandler.Create)
			protected.GET("/lessons/:id", cfg.LessonHandler.Get)
			protected.PUT("/lessons/:id", cfg.LessonHandler.Replace)
			protected.PATCH("/lessons/:id", cfg.LessonHandler.Patch)
			protected.DELETE("/lessons/:id", cfg.LessonHandler.Delete)
		}

		// Payments
		if cfg.PaymentHandler != nil {
			protected.GET("/payments", cfg.PaymentHandler.List)
			protected.POST("/payments", cfg.PaymentHandler.Create)
			protected.GET("/payments/status/:session_id", cfg.PaymentHandler.Status)
		}
	}

	return r
}
