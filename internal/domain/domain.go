package domain

import (
	"github.com/yungbote/coursehub-backend/internal/domain/auth"
	"github.com/yungbote/coursehub-backend/internal/domain/billing"
	"github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/domain/learning"
	"github.com/yungbote/coursehub-backend/internal/domain/user"
)

const (
	RoleStudent   = user.RoleStudent
	RoleModerator = user.RoleModerator

	PaymentMethodCash     = billing.MethodCash
	PaymentMethodTransfer = billing.MethodTransfer
)

type User = user.User
type UserToken = auth.UserToken

type Course = learning.Course
type Lesson = learning.Lesson
type Subscription = learning.Subscription

type Payment = billing.Payment

var MinPaymentAmount = billing.MinAmount

func ValidPaymentMethod(m string) bool { return billing.ValidMethod(m) }

type JobRun = jobs.JobRun

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Course{},
		&Lesson{},
		&Subscription{},
		&Payment{},
		&JobRun{},
	}
}
