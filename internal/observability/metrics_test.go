package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/courses", "200", 20*time.Millisecond)
	m.ObserveHTTP("GET", "/api/courses", "200", 30*time.Millisecond)
	m.ObserveJob("course_update_notify", "succeeded", time.Second)
	m.IncEmailSent("course_update", "sent")
	m.IncPaymentCreated("transfer", "ok")
	m.AddUsersDeactivated(3)
	m.AddUsersDeactivated(0)

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/courses", "200")); got != 2 {
		t.Fatalf("api requests = %v", got)
	}
	if got := testutil.ToFloat64(m.deactivated); got != 3 {
		t.Fatalf("deactivated = %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"ch_api_requests_total", "ch_job_runs_total", "ch_emails_sent_total", "ch_payments_created_total"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %s", want)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", "200", time.Millisecond)
	m.HTTPInflightInc()
	m.HTTPInflightDec()
	m.ObserveJob("x", "failed", time.Millisecond)
	m.IncEmailSent("x", "failed")
	m.IncPaymentCreated("cash", "failed")
	m.AddUsersDeactivated(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rec.Code)
	}
}
