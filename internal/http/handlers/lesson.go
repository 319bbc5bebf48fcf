package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type LessonHandler struct {
	lessonService services.LessonService
	pages         pagination.Params
}

func NewLessonHandler(lessonService services.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService, pages: pagination.Lessons}
}

var lessonBindMessages = map[string]string{"youtube": services.VideoURLMessage}

type lessonRequest struct {
	Course      *string `json:"course"`
	CourseID    *string `json:"course_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Preview     *string `json:"preview"`
	VideoURL    *string `json:"video_url" binding:"omitempty,youtube"`
}

func (h *LessonHandler) bind(c *gin.Context) (services.LessonInput, bool) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, lessonBindMessages)
		return services.LessonInput{}, false
	}
	courseID, ok := optionalUUID(firstNonNil(req.CourseID, req.Course))
	if !ok {
		response.RespondAPIError(c, apierr.Validation("course_id", "Invalid pk - object does not exist."), "invalid_request")
		return services.LessonInput{}, false
	}
	return services.LessonInput{
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		PreviewURL:  req.Preview,
		VideoURL:    req.VideoURL,
	}, true
}

// GET /lessons
func (h *LessonHandler) List(c *gin.Context) {
	pg, ok := pageOf(c, h.pages)
	if !ok {
		return
	}
	rows, count, err := h.lessonService.List(dbcOf(c), pg)
	if err != nil {
		response.RespondAPIError(c, err, "list_lessons_failed")
		return
	}
	respondPage(c, pg, count, rows)
}

// POST /lessons
func (h *LessonHandler) Create(c *gin.Context) {
	in, ok := h.bind(c)
	if !ok {
		return
	}
	lesson, err := h.lessonService.Create(dbcOf(c), in)
	if err != nil {
		response.RespondAPIError(c, err, "create_lesson_failed")
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

// GET /lessons/:id
func (h *LessonHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.lessonService.Get(dbcOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_lesson_failed")
		return
	}
	response.RespondOK(c, lesson)
}

// PUT /lessons/:id
func (h *LessonHandler) Replace(c *gin.Context) { h.update(c, false) }

// PATCH /lessons/:id
func (h *LessonHandler) Patch(c *gin.Context) { h.update(c, true) }

func (h *LessonHandler) update(c *gin.Context, partial bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bind(c)
	if !ok {
		return
	}
	lesson, err := h.lessonService.Update(dbcOf(c), id, in, partial)
	if err != nil {
		response.RespondAPIError(c, err, "update_lesson_failed")
		return
	}
	response.RespondOK(c, lesson)
}

// DELETE /lessons/:id
func (h *LessonHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.lessonService.Delete(dbcOf(c), id); err != nil {
		response.RespondAPIError(c, err, "delete_lesson_failed")
		return
	}
	response.RespondNoContent(c)
}
