package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursehub-backend/internal/data/repos"
	"github.com/yungbote/coursehub-backend/internal/data/repos/testutil"
	"github.com/yungbote/coursehub-backend/internal/events"
	httpH "github.com/yungbote/coursehub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursehub-backend/internal/http/middleware"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
	"github.com/yungbote/coursehub-backend/internal/platform/stripe"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type fakeProcessor struct{}

func (fakeProcessor) CreateProduct(context.Context, string) (string, error) { return "prod_1", nil }

func (fakeProcessor) CreatePrice(context.Context, string, int64, string) (string, error) {
	return "price_1", nil
}

func (fakeProcessor) CreateCheckoutSession(context.Context, string, string, string) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_" + uuid.NewString(), URL: "https://checkout.test/s", PaymentStatus: "unpaid"}, nil
}

func (fakeProcessor) GetCheckoutSessionStatus(context.Context, string) (string, error) {
	return "paid", nil
}

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	tokenRepo := repos.NewUserTokenRepo(db, log)
	courseRepo := repos.NewCourseRepo(db, log)
	lessonRepo := repos.NewLessonRepo(db, log)
	subRepo := repos.NewSubscriptionRepo(db, log)
	paymentRepo := repos.NewPaymentRepo(db, log)
	bus := events.NewInProcessBus(log)

	authService := services.NewAuthService(db, log, userRepo, tokenRepo, "test-secret", time.Minute, time.Hour)
	engine := NewRouter(RouterConfig{
		AuthHandler:    httpH.NewAuthHandler(authService),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authService),
		UserHandler:    httpH.NewUserHandler(services.NewUserService(db, log, userRepo, paymentRepo, nil)),
		CourseHandler: httpH.NewCourseHandler(log,
			services.NewCourseService(db, log, courseRepo, nil, bus),
			services.NewSubscriptionService(log, subRepo, courseRepo)),
		LessonHandler: httpH.NewLessonHandler(services.NewLessonService(db, log, lessonRepo, courseRepo, nil, bus)),
		PaymentHandler: httpH.NewPaymentHandler(log,
			services.NewPaymentService(log, paymentRepo, courseRepo, lessonRepo, fakeProcessor{}, services.CheckoutConfig{})),
		HealthHandler: httpH.NewHealthHandler(db),
	})
	return &apiClient{t: t, engine: engine}
}

func (a *apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectCode(t *testing.T, op string, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("%s: expected %d, got %d: %s", op, want, rec.Code, rec.Body.String())
	}
}

// register creates a user and returns its id and access token.
func (a *apiClient) register(email string) (string, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/register", "", map[string]any{
		"email": email, "password": "s3cret-pass", "first_name": "Ann", "last_name": "Lee",
	})
	expectCode(a.t, "register "+email, rec, http.StatusCreated)
	out := decode[struct {
		User   struct{ ID string } `json:"user"`
		Access string              `json:"access"`
	}](a.t, rec)
	if out.Access == "" || out.User.ID == "" {
		a.t.Fatalf("register returned %s", rec.Body.String())
	}
	return out.User.ID, out.Access
}

func TestHealthcheck(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/healthcheck", "", nil)
	expectCode(t, "healthcheck", rec, http.StatusOK)
	expectCode(t, "readyz", api.do(http.MethodGet, "/readyz", "", nil), http.StatusOK)
}

func TestAuthFlow(t *testing.T) {
	api := newAPI(t)
	_, access := api.register("ann@example.com")

	dup := api.do(http.MethodPost, "/api/users", "", map[string]any{"email": "ann@example.com", "password": "x"})
	expectCode(t, "duplicate register", dup, http.StatusBadRequest)

	bad := api.do(http.MethodPost, "/api/login", "", map[string]any{"email": "ann@example.com", "password": "wrong"})
	expectCode(t, "bad login", bad, http.StatusUnauthorized)

	login := api.do(http.MethodPost, "/api/login", "", map[string]any{"email": "ann@example.com", "password": "s3cret-pass"})
	expectCode(t, "login", login, http.StatusOK)
	tokens := decode[map[string]any](t, login)
	if tokens["access_token"] == "" || tokens["refresh_token"] == "" || tokens["expires_in"] == nil {
		t.Fatalf("login body: %v", tokens)
	}

	expectCode(t, "me", api.do(http.MethodGet, "/api/me", access, nil), http.StatusOK)
	expectCode(t, "me anonymous", api.do(http.MethodGet, "/api/me", "", nil), http.StatusUnauthorized)
	expectCode(t, "me bad token", api.do(http.MethodGet, "/api/me", "garbage", nil), http.StatusUnauthorized)
}

func TestUserEndpoints(t *testing.T) {
	api := newAPI(t)
	annID, ann := api.register("ann@example.com")
	bobID, _ := api.register("bob@example.com")

	list := api.do(http.MethodGet, "/api/users", ann, nil)
	expectCode(t, "list users", list, http.StatusOK)
	env := decode[pagination.Envelope[map[string]any]](t, list)
	if env.Count != 2 || len(env.Results) != 2 {
		t.Fatalf("unexpected users page: %+v", env)
	}

	self := decode[map[string]any](t, api.do(http.MethodGet, "/api/users/"+annID, ann, nil))
	if _, ok := self["payments"]; !ok {
		t.Fatalf("self view should include payments: %v", self)
	}
	other := decode[map[string]any](t, api.do(http.MethodGet, "/api/users/"+bobID, ann, nil))
	if _, ok := other["payments"]; ok {
		t.Fatalf("public view leaked payments: %v", other)
	}

	expectCode(t, "patch other", api.do(http.MethodPatch, "/api/users/"+bobID, ann, map[string]any{"city": "Oslo"}), http.StatusForbidden)
	patched := api.do(http.MethodPatch, "/api/users/"+annID, ann, map[string]any{"city": "Oslo"})
	expectCode(t, "patch self", patched, http.StatusOK)
	if got := decode[map[string]any](t, patched)["city"]; got != "Oslo" {
		t.Fatalf("city not updated: %v", got)
	}
	expectCode(t, "bad email", api.do(http.MethodPatch, "/api/users/"+annID, ann, map[string]any{"email": "nope"}), http.StatusBadRequest)

	expectCode(t, "delete non-staff", api.do(http.MethodDelete, "/api/users/"+bobID, ann, nil), http.StatusForbidden)
	expectCode(t, "malformed id", api.do(http.MethodGet, "/api/users/not-a-uuid", ann, nil), http.StatusNotFound)
}

func TestCourseAndLessonEndpoints(t *testing.T) {
	api := newAPI(t)
	_, ann := api.register("ann@example.com")
	_, bob := api.register("bob@example.com")

	created := api.do(http.MethodPost, "/api/courses", ann, map[string]any{"title": "Go", "description": "Basics"})
	expectCode(t, "create course", created, http.StatusCreated)
	course := decode[services.CourseView](t, created)

	expectCode(t, "missing title", api.do(http.MethodPost, "/api/courses", ann, map[string]any{"description": "x"}), http.StatusBadRequest)
	expectCode(t, "other user's course", api.do(http.MethodGet, "/api/courses/"+course.ID.String(), bob, nil), http.StatusNotFound)
	expectCode(t, "other user patch", api.do(http.MethodPatch, "/api/courses/"+course.ID.String(), bob, map[string]any{"title": "x"}), http.StatusForbidden)
	expectCode(t, "put without description", api.do(http.MethodPut, "/api/courses/"+course.ID.String(), ann, map[string]any{"title": "Go 2"}), http.StatusBadRequest)
	expectCode(t, "patch title", api.do(http.MethodPatch, "/api/courses/"+course.ID.String(), ann, map[string]any{"title": "Go 2"}), http.StatusOK)

	badVideo := api.do(http.MethodPost, "/api/lessons", ann, map[string]any{
		"course_id": course.ID, "title": "L1", "description": "d", "video_url": "https://vimeo.com/1",
	})
	expectCode(t, "non-youtube video", badVideo, http.StatusBadRequest)
	fields := decode[struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}](t, badVideo).Error.Fields
	if fields["video_url"] != services.VideoURLMessage {
		t.Fatalf("unexpected video_url message: %v", fields)
	}

	expectCode(t, "unknown course", api.do(http.MethodPost, "/api/lessons", ann, map[string]any{
		"course_id": uuid.NewString(), "title": "L1", "description": "d", "video_url": "https://youtu.be/abc",
	}), http.StatusBadRequest)

	for i := 0; i < 6; i++ {
		rec := api.do(http.MethodPost, "/api/lessons", ann, map[string]any{
			"course_id": course.ID, "title": "L", "description": "d", "video_url": "https://www.youtube.com/watch?v=abc",
		})
		expectCode(t, "create lesson", rec, http.StatusCreated)
	}

	page := decode[pagination.Envelope[map[string]any]](t, api.do(http.MethodGet, "/api/lessons", ann, nil))
	if page.Count != 6 || len(page.Results) != 5 || page.Next == nil || page.Previous != nil {
		t.Fatalf("unexpected first lesson page: count=%d results=%d next=%v", page.Count, len(page.Results), page.Next)
	}
	expectCode(t, "page out of range", api.do(http.MethodGet, "/api/lessons?page=3", ann, nil), http.StatusNotFound)
	expectCode(t, "non-numeric page", api.do(http.MethodGet, "/api/lessons?page=abc", ann, nil), http.StatusNotFound)

	detail := decode[services.CourseView](t, api.do(http.MethodGet, "/api/courses/"+course.ID.String(), ann, nil))
	if detail.LessonsCount != 6 {
		t.Fatalf("expected 6 lessons on course, got %d", detail.LessonsCount)
	}

	toggled := decode[services.ToggleResult](t, api.do(http.MethodPost, "/api/courses/"+course.ID.String()+"/subscription", bob, nil))
	if !toggled.Subscribed || toggled.Message != services.SubscriptionAddedMessage {
		t.Fatalf("unexpected toggle: %+v", toggled)
	}
	toggled = decode[services.ToggleResult](t, api.do(http.MethodPost, "/api/courses/"+course.ID.String()+"/subscription", bob, nil))
	if toggled.Subscribed || toggled.Message != services.SubscriptionRemovedMessage {
		t.Fatalf("unexpected second toggle: %+v", toggled)
	}
	expectCode(t, "toggle missing", api.do(http.MethodPost, "/api/courses/"+uuid.NewString()+"/subscription", bob, nil), http.StatusNotFound)

	expectCode(t, "delete course", api.do(http.MethodDelete, "/api/courses/"+course.ID.String(), ann, nil), http.StatusNoContent)
	expectCode(t, "deleted course", api.do(http.MethodGet, "/api/courses/"+course.ID.String(), ann, nil), http.StatusNotFound)
}

func TestPaymentEndpoints(t *testing.T) {
	api := newAPI(t)
	_, ann := api.register("ann@example.com")
	_, bob := api.register("bob@example.com")
	course := decode[services.CourseView](t, api.do(http.MethodPost, "/api/courses", ann, map[string]any{"title": "Go", "description": "Basics"}))

	expectCode(t, "no target", api.do(http.MethodPost, "/api/payments", ann, map[string]any{
		"amount": "10.00", "payment_method": "transfer",
	}), http.StatusBadRequest)

	created := api.do(http.MethodPost, "/api/payments", ann, map[string]any{
		"paid_course_id": course.ID, "amount": 1500.5, "payment_method": "transfer",
	})
	expectCode(t, "create payment", created, http.StatusCreated)
	res := decode[services.CheckoutResult](t, created)
	if res.SessionURL == "" || res.PaymentID == uuid.Nil {
		t.Fatalf("unexpected checkout result: %+v", res)
	}

	list := decode[[]map[string]any](t, api.do(http.MethodGet, "/api/payments?payment_method=transfer", ann, nil))
	if len(list) != 1 {
		t.Fatalf("expected one payment, got %d", len(list))
	}
	sessionID, _ := list[0]["session_id"].(string)

	status := api.do(http.MethodGet, "/api/payments/status/"+sessionID, ann, nil)
	expectCode(t, "status", status, http.StatusOK)
	if got := decode[map[string]string](t, status)["status"]; got != "paid" {
		t.Fatalf("unexpected status %q", got)
	}
	expectCode(t, "status other user", api.do(http.MethodGet, "/api/payments/status/"+sessionID, bob, nil), http.StatusNotFound)

	if others := decode[[]map[string]any](t, api.do(http.MethodGet, "/api/payments", bob, nil)); len(others) != 0 {
		t.Fatalf("bob should not see ann's payments: %v", others)
	}
	expectCode(t, "bad filter", api.do(http.MethodGet, "/api/payments?paid_course=nope", ann, nil), http.StatusBadRequest)
}
