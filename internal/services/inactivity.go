package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const DefaultInactiveAfter = 30 * 24 * time.Hour

type InactivityService interface {
	// DeactivateInactiveUsers turns off regular accounts whose last login is
	// older than the cutoff and reports how many changed.
	DeactivateInactiveUsers(ctx context.Context, now time.Time) (int64, error)
}

type inactivityService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	after    time.Duration
}

func NewInactivityService(baseLog *logger.Logger, userRepo repos.UserRepo, inactiveAfter time.Duration) InactivityService {
	if inactiveAfter <= 0 {
		inactiveAfter = DefaultInactiveAfter
	}
	return &inactivityService{
		log:      baseLog.With("service", "InactivityService"),
		userRepo: userRepo,
		after:    inactiveAfter,
	}
}

func (s *inactivityService) DeactivateInactiveUsers(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := now.UTC().Add(-s.after)
	n, err := s.userRepo.DeactivateInactive(dbctx.Context{Ctx: ctx}, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate inactive users: %w", err)
	}
	observability.Current().AddUsersDeactivated(n)
	s.log.Info("Deactivated inactive users", "count", n, "cutoff", cutoff)
	return n, nil
}
