package inactive_user_sweep

import (
	jobrt "github.com/yungbote/coursehub-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	jc.Progress("sweep", 5, "Deactivating inactive users")
	n, err := p.inactivity.DeactivateInactiveUsers(jc.Ctx, p.now())
	if err != nil {
		jc.Fail("sweep", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"deactivated": n,
	})
	return nil
}
