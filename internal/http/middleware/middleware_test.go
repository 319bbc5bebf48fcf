package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/coursehub-backend/internal/domain"
	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type stubAuth struct {
	services.AuthService
	userID uuid.UUID
}

func (s stubAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	switch token {
	case "good":
		return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: token, UserID: s.userID, Role: types.RoleStudent}), nil
	case "orphan":
		return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: token}), nil
	default:
		return nil, errors.New("token is expired")
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	am := NewAuthMiddleware(logger.Nop(), stubAuth{userID: userID})

	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})

	cases := []struct {
		header   string
		want     int
		wantCode string
	}{
		{header: "", want: http.StatusUnauthorized, wantCode: "unauthorized"},
		{header: "Token good", want: http.StatusUnauthorized, wantCode: "unauthorized"},
		{header: "Bearer expired", want: http.StatusUnauthorized, wantCode: "unauthorized"},
		{header: "Bearer orphan", want: http.StatusForbidden, wantCode: "forbidden"},
		{header: "bearer good", want: http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%q: status = %d, want %d", tc.header, rec.Code, tc.want)
		}
		if tc.wantCode != "" {
			if got := errorCode(t, rec); got != tc.wantCode {
				t.Fatalf("%q: code = %q", tc.header, got)
			}
		} else if rec.Body.String() != userID.String() {
			t.Fatalf("handler saw user %q", rec.Body.String())
		}
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(logger.Nop(), rdb)
	r := gin.New()
	r.POST("/login", rl.Limit("login", 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	for i := 0; i < 2; i++ {
		if rec := hit(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
	rec := hit()
	if rec.Code != http.StatusTooManyRequests || errorCode(t, rec) != "throttled" {
		t.Fatalf("expected 429, got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}

	mr.FastForward(time.Minute + time.Second)
	if rec := hit(); rec.Code != http.StatusOK {
		t.Fatalf("window should reset, got %d", rec.Code)
	}
}

func TestRateLimiterWithoutRedisIsNoop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(logger.Nop(), nil)
	r := gin.New()
	r.POST("/login", rl.Limit("login", 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, rec.Code)
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.TraceID+"|"+td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Trace-Id", "trace-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "trace-1|req-1" || rec.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("unexpected trace propagation: %q %v", rec.Body.String(), rec.Header())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("ids should be generated: %v", rec.Header())
	}
}
