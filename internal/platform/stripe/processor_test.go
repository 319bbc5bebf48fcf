package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

type fakeStripe struct {
	mu    sync.Mutex
	forms map[string]map[string]string
}

func newFakeStripe(t *testing.T) (*fakeStripe, *httptest.Server) {
	t.Helper()
	f := &fakeStripe{forms: map[string]map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := map[string]string{}
		for k, v := range r.PostForm {
			form[k] = v[0]
		}
		f.mu.Lock()
		f.forms[r.Method+" "+r.URL.Path] = form
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/products":
			_, _ = w.Write([]byte(`{"id":"prod_1","object":"product","name":"` + form["name"] + `"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/prices":
			_, _ = w.Write([]byte(`{"id":"price_1","object":"price","unit_amount":` + form["unit_amount"] + `}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/checkout/sessions":
			_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.test/cs_test_1","payment_status":"unpaid"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/checkout/sessions/cs_test_1":
			_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","payment_status":"paid"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeStripe) form(key string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[key]
}

func TestCheckoutFlow(t *testing.T) {
	fake, srv := newFakeStripe(t)
	p, err := New(logger.Nop(), Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	prodID, err := p.CreateProduct(ctx, "Go Basics")
	if err != nil || prodID != "prod_1" {
		t.Fatalf("CreateProduct: id=%q err=%v", prodID, err)
	}
	if got := fake.form("POST /v1/products")["name"]; got != "Go Basics" {
		t.Fatalf("product name sent: %q", got)
	}

	priceID, err := p.CreatePrice(ctx, prodID, 150050, "RUB")
	if err != nil || priceID != "price_1" {
		t.Fatalf("CreatePrice: id=%q err=%v", priceID, err)
	}
	priceForm := fake.form("POST /v1/prices")
	if priceForm["unit_amount"] != "150050" || priceForm["currency"] != "rub" || priceForm["product"] != "prod_1" {
		t.Fatalf("price form: %+v", priceForm)
	}

	sess, err := p.CreateCheckoutSession(ctx, priceID, "https://app.test/success", "https://app.test/cancel")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL != "https://checkout.test/cs_test_1" || sess.PaymentStatus != "unpaid" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	sessForm := fake.form("POST /v1/checkout/sessions")
	if sessForm["mode"] != "payment" || sessForm["line_items[0][price]"] != "price_1" || sessForm["line_items[0][quantity]"] != "1" {
		t.Fatalf("session form: %+v", sessForm)
	}
	if sessForm["success_url"] != "https://app.test/success" || sessForm["cancel_url"] != "https://app.test/cancel" {
		t.Fatalf("session urls: %+v", sessForm)
	}

	status, err := p.GetCheckoutSessionStatus(ctx, "cs_test_1")
	if err != nil || status != "paid" {
		t.Fatalf("GetCheckoutSessionStatus: status=%q err=%v", status, err)
	}
}

func TestProcessorPropagatesErrors(t *testing.T) {
	_, srv := newFakeStripe(t)
	p, err := New(logger.Nop(), Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.GetCheckoutSessionStatus(context.Background(), "cs_missing")
	if err == nil || !strings.Contains(err.Error(), "stripe get checkout session") {
		t.Fatalf("expected wrapped stripe error, got %v", err)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
