package repos

import (
	"github.com/yungbote/coursehub-backend/internal/data/repos/auth"
	"github.com/yungbote/coursehub-backend/internal/data/repos/billing"
	"github.com/yungbote/coursehub-backend/internal/data/repos/jobs"
	"github.com/yungbote/coursehub-backend/internal/data/repos/learning"
	"github.com/yungbote/coursehub-backend/internal/data/repos/user"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type SubscriptionRepo = learning.SubscriptionRepo
type Scope = learning.Scope

type PaymentRepo = billing.PaymentRepo
type PaymentFilter = billing.ListFilter

type JobRunRepo = jobs.JobRunRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return learning.NewSubscriptionRepo(db, baseLog)
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return billing.NewPaymentRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
