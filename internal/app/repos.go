package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	UserToken    repos.UserTokenRepo
	Course       repos.CourseRepo
	Lesson       repos.LessonRepo
	Subscription repos.SubscriptionRepo
	Payment      repos.PaymentRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		UserToken:    repos.NewUserTokenRepo(db, log),
		Course:       repos.NewCourseRepo(db, log),
		Lesson:       repos.NewLessonRepo(db, log),
		Subscription: repos.NewSubscriptionRepo(db, log),
		Payment:      repos.NewPaymentRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
