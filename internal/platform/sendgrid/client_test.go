package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string, retries int) *client {
	t.Helper()
	c, err := New(logger.Nop(), Config{
		APIKey:           "SG.test",
		BaseURL:          url,
		DefaultFromEmail: "noreply@example.com",
		MaxRetries:       retries,
		Timeout:          2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cl := c.(*client)
	cl.backoff = time.Millisecond
	return cl
}

func TestSendPostsMailSendPayload(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer SG.test" {
			t.Errorf("missing bearer auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "student@example.com"}},
		Subject: "Hello",
		Text:    "Body",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusAccepted || res.MessageID != "msg-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.From.Email != "noreply@example.com" || got.Subject != "Hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "student@example.com" {
		t.Fatalf("unexpected personalizations: %+v", got.Personalizations)
	}
}

func TestSendRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	if _, err := c.Send(context.Background(), SendEmailRequest{
		To: []EmailAddress{{Email: "a@example.com"}}, Subject: "s", Text: "t",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestSendDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Send(context.Background(), SendEmailRequest{
		To: []EmailAddress{{Email: "a@example.com"}}, Subject: "s", Text: "t",
	})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPError 400, got %v", err)
	}
	if he.Error() != "sendgrid http 400: bad from" {
		t.Fatalf("unexpected message: %q", he.Error())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestLogClientCapturesMessages(t *testing.T) {
	c := NewLogClient(logger.Nop(), Config{})
	if _, err := c.Send(context.Background(), SendEmailRequest{
		To: []EmailAddress{{Email: "a@example.com"}}, Subject: "s", Text: "t",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{Subject: "s", Text: "t"}); err == nil {
		t.Fatal("expected error for missing recipients")
	}
	sent := c.Sent()
	if len(sent) != 1 || sent[0].From.Email != "noreply@localhost" {
		t.Fatalf("unexpected captured messages: %+v", sent)
	}
}
