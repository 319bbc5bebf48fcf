package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string       { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"429", statusErr(429), true},
		{"503", statusErr(503), true},
		{"400", statusErr(400), false},
		{"wrapped 502", fmt.Errorf("upstream: %w", statusErr(502)), true},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "3")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 3*time.Second {
		t.Fatalf("got=%s want=3s", got)
	}
	resp.Header.Set("Retry-After", "60")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("cap: got=%s want=10s", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback: got=%s", got)
	}
}

func TestClampBackoff(t *testing.T) {
	if got := ClampBackoff(100*time.Millisecond, time.Second, 1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: got=%s", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 3); got != 400*time.Millisecond {
		t.Fatalf("attempt 3: got=%s", got)
	}
	if got := ClampBackoff(100*time.Millisecond, time.Second, 10); got != time.Second {
		t.Fatalf("attempt 10: got=%s", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := JitterSleep(time.Second)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of range: %s", got)
		}
	}
}
