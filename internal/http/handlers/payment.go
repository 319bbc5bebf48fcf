package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type PaymentHandler struct {
	log            *logger.Logger
	paymentService services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		log:            log.With("handler", "PaymentHandler"),
		paymentService: paymentService,
	}
}

// POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req struct {
		PaidCourse    *string    `json:"paid_course"`
		PaidCourseID  *string    `json:"paid_course_id"`
		PaidLesson    *string    `json:"paid_lesson"`
		PaidLessonID  *string    `json:"paid_lesson_id"`
		Amount        flexString `json:"amount"`
		PaymentMethod string     `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	courseID, ok := optionalUUID(firstNonNil(req.PaidCourseID, req.PaidCourse))
	if !ok {
		response.RespondAPIError(c, apierr.Validation("paid_course", "Invalid pk - object does not exist."), "invalid_request")
		return
	}
	lessonID, ok := optionalUUID(firstNonNil(req.PaidLessonID, req.PaidLesson))
	if !ok {
		response.RespondAPIError(c, apierr.Validation("paid_lesson", "Invalid pk - object does not exist."), "invalid_request")
		return
	}
	res, err := h.paymentService.Create(dbcOf(c), services.PaymentInput{
		PaidCourseID:  courseID,
		PaidLessonID:  lessonID,
		Amount:        req.Amount.Value,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		response.RespondAPIError(c, err, "payment_failed")
		return
	}
	response.RespondCreated(c, res)
}

// GET /payments/status/:session_id
func (h *PaymentHandler) Status(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	status, err := h.paymentService.Status(dbcOf(c), sessionID)
	if err != nil {
		response.RespondAPIError(c, err, "payment_status_failed")
		return
	}
	response.RespondOK(c, gin.H{"status": status})
}

// GET /payments?paid_course=&paid_lesson=&payment_method=&ordering=
func (h *PaymentHandler) List(c *gin.Context) {
	course := c.Query("paid_course")
	lesson := c.Query("paid_lesson")
	courseID, ok := optionalUUID(&course)
	if !ok {
		response.RespondAPIError(c, apierr.Validation("paid_course", "Select a valid choice."), "invalid_filter")
		return
	}
	lessonID, ok := optionalUUID(&lesson)
	if !ok {
		response.RespondAPIError(c, apierr.Validation("paid_lesson", "Select a valid choice."), "invalid_filter")
		return
	}
	rows, err := h.paymentService.List(dbcOf(c), services.PaymentListFilter{
		PaidCourseID:  courseID,
		PaidLessonID:  lessonID,
		PaymentMethod: c.Query("payment_method"),
		Ordering:      c.Query("ordering"),
	})
	if err != nil {
		response.RespondAPIError(c, err, "list_payments_failed")
		return
	}
	response.RespondOK(c, rows)
}
