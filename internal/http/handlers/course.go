package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
	subService    services.SubscriptionService
	pages         pagination.Params
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService, subService services.SubscriptionService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
		subService:    subService,
		pages:         pagination.Courses,
	}
}

type courseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Preview     *string `json:"preview"`
}

func (r courseRequest) input() services.CourseInput {
	return services.CourseInput{Title: r.Title, Description: r.Description, PreviewURL: r.Preview}
}

// GET /courses
func (h *CourseHandler) List(c *gin.Context) {
	pg, ok := pageOf(c, h.pages)
	if !ok {
		return
	}
	rows, count, err := h.courseService.List(dbcOf(c), pg)
	if err != nil {
		response.RespondAPIError(c, err, "list_courses_failed")
		return
	}
	respondPage(c, pg, count, rows)
}

// POST /courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	view, err := h.courseService.Create(dbcOf(c), req.input())
	if err != nil {
		response.RespondAPIError(c, err, "create_course_failed")
		return
	}
	response.RespondCreated(c, view)
}

// GET /courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.courseService.Get(dbcOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_course_failed")
		return
	}
	response.RespondOK(c, view)
}

// PUT /courses/:id
func (h *CourseHandler) Replace(c *gin.Context) { h.update(c, false) }

// PATCH /courses/:id
func (h *CourseHandler) Patch(c *gin.Context) { h.update(c, true) }

func (h *CourseHandler) update(c *gin.Context, partial bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	view, err := h.courseService.Update(dbcOf(c), id, req.input(), partial)
	if err != nil {
		response.RespondAPIError(c, err, "update_course_failed")
		return
	}
	response.RespondOK(c, view)
}

// DELETE /courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.courseService.Delete(dbcOf(c), id); err != nil {
		response.RespondAPIError(c, err, "delete_course_failed")
		return
	}
	response.RespondNoContent(c)
}

// POST /courses/:id/subscription
func (h *CourseHandler) ToggleSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.subService.Toggle(dbcOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "subscription_failed")
		return
	}
	h.log.Debug("Subscription toggled", "course_id", id, "subscribed", res.Subscribed)
	response.RespondOK(c, res)
}
