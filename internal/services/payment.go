package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/domain/billing"
	"github.com/yungbote/coursehub-backend/internal/observability"
	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
	"github.com/yungbote/coursehub-backend/internal/platform/dbctx"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/stripe"
)

type CheckoutConfig struct {
	SuccessURL string `mapstructure:"PAYMENT_SUCCESS_URL"`
	CancelURL  string `mapstructure:"PAYMENT_CANCEL_URL"`
	Currency   string `mapstructure:"PAYMENT_CURRENCY"`
}

func (c CheckoutConfig) withDefaults() CheckoutConfig {
	if strings.TrimSpace(c.SuccessURL) == "" {
		c.SuccessURL = "http://127.0.0.1:8000/payment-success/"
	}
	if strings.TrimSpace(c.CancelURL) == "" {
		c.CancelURL = "http://127.0.0.1:8000/payment-cancel/"
	}
	if strings.TrimSpace(c.Currency) == "" {
		c.Currency = "rub"
	}
	return c
}

type PaymentInput struct {
	PaidCourseID  *uuid.UUID
	PaidLessonID  *uuid.UUID
	Amount        string
	PaymentMethod string
}

type CheckoutResult struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	SessionURL string    `json:"session_url"`
}

type PaymentListFilter struct {
	PaidCourseID  *uuid.UUID
	PaidLessonID  *uuid.UUID
	PaymentMethod string
	Ordering      string
}

type PaymentService interface {
	Create(dbc dbctx.Context, in PaymentInput) (*CheckoutResult, error)
	Status(dbc dbctx.Context, sessionID string) (string, error)
	List(dbc dbctx.Context, f PaymentListFilter) ([]*types.Payment, error)
}

type paymentService struct {
	log         *logger.Logger
	paymentRepo repos.PaymentRepo
	courseRepo  repos.CourseRepo
	lessonRepo  repos.LessonRepo
	processor   stripe.Processor
	cfg         CheckoutConfig
}

func NewPaymentService(
	baseLog *logger.Logger,
	paymentRepo repos.PaymentRepo,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	processor stripe.Processor,
	cfg CheckoutConfig,
) PaymentService {
	return &paymentService{
		log:         baseLog.With("service", "PaymentService"),
		paymentRepo: paymentRepo,
		courseRepo:  courseRepo,
		lessonRepo:  lessonRepo,
		processor:   processor,
		cfg:         cfg.withDefaults(),
	}
}

var (
	maxAmount          = decimal.RequireFromString("99999999.99")
	errPaymentNotFound = apierr.NotFound("not_found", "Payment not found")
)

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apierr.Validation("amount", "This field is required.")
	}
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apierr.Validation("amount", "A valid number is required.")
	}
	if amt.Exponent() < -2 && !amt.Equal(amt.Round(2)) {
		return decimal.Zero, apierr.Validation("amount", "Ensure that there are no more than 2 decimal places.")
	}
	if amt.LessThan(billing.MinAmount) {
		return decimal.Zero, apierr.Validation("amount", "Ensure this value is greater than or equal to 0.01.")
	}
	if amt.GreaterThan(maxAmount) {
		return decimal.Zero, apierr.Validation("amount", "Ensure that there are no more than 10 digits in total.")
	}
	return amt.Round(2), nil
}

// Create records the payment, then opens a checkout session for it. The row is
// kept even when the processor fails so the attempt stays auditable.
func (ps *paymentService) Create(dbc dbctx.Context, in PaymentInput) (*CheckoutResult, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	hasCourse := in.PaidCourseID != nil && *in.PaidCourseID != uuid.Nil
	hasLesson := in.PaidLessonID != nil && *in.PaidLessonID != uuid.Nil
	if hasCourse == hasLesson {
		return nil, apierr.Validation("non_field_errors", "Exactly one of paid_course or paid_lesson must be set.")
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		return nil, apierr.Validation("payment_method", "This field is required.")
	}
	if !billing.ValidMethod(method) {
		return nil, apierr.Validation("payment_method", fmt.Sprintf("%q is not a valid choice.", in.PaymentMethod))
	}

	var title string
	payment := &types.Payment{UserID: caller.UserID, Amount: amount, PaymentMethod: method}
	if hasCourse {
		course, err := ps.courseRepo.GetByID(dbc, *in.PaidCourseID)
		if err != nil {
			return nil, fmt.Errorf("get course: %w", err)
		}
		if course == nil {
			return nil, apierr.Validation("paid_course", fmt.Sprintf("Invalid pk %q - object does not exist.", in.PaidCourseID.String()))
		}
		title = course.Title
		payment.PaidCourseID = &course.ID
	} else {
		lesson, err := ps.lessonRepo.GetByID(dbc, *in.PaidLessonID)
		if err != nil {
			return nil, fmt.Errorf("get lesson: %w", err)
		}
		if lesson == nil {
			return nil, apierr.Validation("paid_lesson", fmt.Sprintf("Invalid pk %q - object does not exist.", in.PaidLessonID.String()))
		}
		title = lesson.Title
		payment.PaidLessonID = &lesson.ID
	}

	if _, err := ps.paymentRepo.Create(dbc, []*types.Payment{payment}); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	sess, err := ps.checkout(dbc, title, payment.MinorUnits())
	if err != nil {
		observability.Current().IncPaymentCreated(method, "processor_error")
		ps.log.Error("Checkout failed", "payment_id", payment.ID, "error", err)
		return nil, fmt.Errorf("checkout for payment %s: %w", payment.ID, err)
	}

	updates := map[string]interface{}{
		"processor_session_id":  sess.ID,
		"processor_session_url": sess.URL,
		"processor_status":      sess.PaymentStatus,
	}
	if err := ps.paymentRepo.UpdateFields(dbc, payment.ID, updates); err != nil {
		return nil, fmt.Errorf("save checkout session: %w", err)
	}
	observability.Current().IncPaymentCreated(method, "ok")
	ps.log.Info("Checkout session created", "payment_id", payment.ID, "session_id", sess.ID)
	return &CheckoutResult{PaymentID: payment.ID, SessionURL: sess.URL}, nil
}

func (ps *paymentService) checkout(dbc dbctx.Context, title string, minorUnits int64) (*stripe.CheckoutSession, error) {
	if ps.processor == nil {
		return nil, fmt.Errorf("payment processor not configured")
	}
	productID, err := ps.processor.CreateProduct(dbc.Ctx, title)
	if err != nil {
		return nil, err
	}
	priceID, err := ps.processor.CreatePrice(dbc.Ctx, productID, minorUnits, ps.cfg.Currency)
	if err != nil {
		return nil, err
	}
	return ps.processor.CreateCheckoutSession(dbc.Ctx, priceID, ps.cfg.SuccessURL, ps.cfg.CancelURL)
}

// Status polls the processor for a session owned by the caller. The stored
// payment row is not modified.
func (ps *paymentService) Status(dbc dbctx.Context, sessionID string) (string, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return "", err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", errPaymentNotFound
	}
	payment, err := ps.paymentRepo.GetBySessionID(dbc, sessionID)
	if err != nil {
		return "", fmt.Errorf("get payment: %w", err)
	}
	if payment == nil || payment.UserID != caller.UserID {
		return "", errPaymentNotFound
	}
	if ps.processor == nil {
		return "", fmt.Errorf("payment processor not configured")
	}
	status, err := ps.processor.GetCheckoutSessionStatus(dbc.Ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("checkout status: %w", err)
	}
	return status, nil
}

func (ps *paymentService) List(dbc dbctx.Context, f PaymentListFilter) ([]*types.Payment, error) {
	caller, err := requireCaller(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	filter := repos.PaymentFilter{
		PaidCourseID:  f.PaidCourseID,
		PaidLessonID:  f.PaidLessonID,
		PaymentMethod: strings.ToLower(strings.TrimSpace(f.PaymentMethod)),
		Ordering:      f.Ordering,
	}
	if !caller.IsModerator() {
		filter.UserID = &caller.UserID
	}
	switch filter.Ordering {
	case "", "payment_date", "-payment_date":
	default:
		filter.Ordering = ""
	}
	rows, err := ps.paymentRepo.List(dbc, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if rows == nil {
		rows = []*types.Payment{}
	}
	return rows, nil
}
