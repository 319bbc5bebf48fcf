package inactive_user_sweep

import (
	"time"

	jobtypes "github.com/yungbote/coursehub-backend/internal/domain/jobs"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type Pipeline struct {
	log        *logger.Logger
	inactivity services.InactivityService
	now        func() time.Time
}

func New(baseLog *logger.Logger, inactivity services.InactivityService) *Pipeline {
	return &Pipeline{
		log:        baseLog.With("job", jobtypes.TypeInactiveUserSweep),
		inactivity: inactivity,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) Type() string { return jobtypes.TypeInactiveUserSweep }
