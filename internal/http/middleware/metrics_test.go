package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/observability"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/courses/1", "/api/courses/2", "/healthcheck", "/wp-login.php"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	if !strings.Contains(body, `route="/api/courses/:id",status="200"} 2`) {
		t.Fatalf("expected two requests on the route template:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("expected unmatched label:\n%s", body)
	}
	if strings.Contains(body, `route="/healthcheck"`) || strings.Contains(body, "wp-login") {
		t.Fatalf("unexpected route label:\n%s", body)
	}
}

func TestTraceContextRejectsUnsafeClientIDs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "req-1", "req-1"},
		{"trimmed", "  abc_2.x ", "abc_2.x"},
		{"too long", strings.Repeat("a", maxClientIDLen+1), ""},
		{"newline", "a\nb", ""},
		{"space", "a b", ""},
	}
	for _, tc := range cases {
		if got := clientID(tc.in); got != tc.want {
			t.Fatalf("%s: clientID(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
