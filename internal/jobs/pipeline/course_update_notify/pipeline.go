package course_update_notify

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/coursehub-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	courseID, ok := jc.PayloadUUID("course_id")
	if !ok && jc.Job.EntityID != nil {
		courseID, ok = *jc.Job.EntityID, true
	}
	if !ok || courseID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing course_id"))
		return nil
	}

	jc.Progress("notify", 10, "Emailing subscribers")
	res, err := p.notify.NotifyCourseSubscribers(jc.Ctx, courseID, p.now())
	if err != nil {
		p.log.Warn("Course update notification failed", "course_id", courseID, "error", err)
		jc.Fail("notify", err)
		return nil
	}

	out := map[string]any{
		"course_id": courseID.String(),
		"sent":      res.Sent,
	}
	if res.Skipped != "" {
		out["skipped"] = res.Skipped
	}
	jc.Succeed("done", out)
	return nil
}
