package course_update_notify

import (
	"time"

	jobtypes "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type Pipeline struct {
	log    *logger.Logger
	notify services.NotificationService
	now    func() time.Time
}

func New(baseLog *logger.Logger, notify services.NotificationService) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", jobtypes.TypeCourseUpdateNotify),
		notify: notify,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeCourseUpdateNotify }
