package stripe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/yungbote/coursehub-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursehub-backend/internal/platform/envutil"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

// Processor is the checkout surface the payment flow depends on.
type Processor interface {
	CreateProduct(ctx context.Context, name string) (string, error)
	CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (string, error)
	CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (*CheckoutSession, error)
	GetCheckoutSessionStatus(ctx context.Context, sessionID string) (string, error)
}

type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int64
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("STRIPE_API_KEY", ""),
		BaseURL:    envutil.String("STRIPE_BASE_URL", ""),
		Timeout:    envutil.Seconds("STRIPE_TIMEOUT_SECONDS", 30*time.Second),
		MaxRetries: int64(envutil.Int("STRIPE_MAX_RETRIES", 0)),
	}
}

type processor struct {
	log *logger.Logger
	api *client.API
}

func New(log *logger.Logger, cfg Config) (Processor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing STRIPE_API_KEY")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	bc := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripego.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelNull},
	}
	if u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); u != "" {
		bc.URL = stripego.String(u)
	}
	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, bc),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, bc),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, bc),
	}
	return &processor{
		log: log.With("client", "StripeProcessor"),
		api: client.New(cfg.APIKey, backends),
	}, nil
}

func (p *processor) CreateProduct(ctx context.Context, name string) (string, error) {
	params := &stripego.ProductParams{Name: stripego.String(name)}
	params.Context = ctxutil.Default(ctx)
	prod, err := p.api.Products.New(params)
	if err != nil {
		return "", p.wrap("create product", err)
	}
	return prod.ID, nil
}

func (p *processor) CreatePrice(ctx context.Context, productID string, unitAmount int64, currency string) (string, error) {
	params := &stripego.PriceParams{
		Product:    stripego.String(productID),
		UnitAmount: stripego.Int64(unitAmount),
		Currency:   stripego.String(strings.ToLower(currency)),
	}
	params.Context = ctxutil.Default(ctx)
	price, err := p.api.Prices.New(params)
	if err != nil {
		return "", p.wrap("create price", err)
	}
	return price.ID, nil
}

func (p *processor) CreateCheckoutSession(ctx context.Context, priceID, successURL, cancelURL string) (*CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(priceID), Quantity: stripego.Int64(1)},
		},
		Mode:       stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL: stripego.String(successURL),
		CancelURL:  stripego.String(cancelURL),
	}
	params.Context = ctxutil.Default(ctx)
	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, p.wrap("create checkout session", err)
	}
	return &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
	}, nil
}

func (p *processor) GetCheckoutSessionStatus(ctx context.Context, sessionID string) (string, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctxutil.Default(ctx)
	sess, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", p.wrap("get checkout session", err)
	}
	return string(sess.PaymentStatus), nil
}

func (p *processor) wrap(op string, err error) error {
	if se, ok := err.(*stripego.Error); ok {
		p.log.Warn("Stripe call failed",
			"op", op,
			"status", se.HTTPStatusCode,
			"type", string(se.Type),
			"request_id", se.RequestID,
		)
		return fmt.Errorf("stripe %s: %s (http %d)", op, se.Msg, se.HTTPStatusCode)
	}
	p.log.Warn("Stripe call failed", "op", op, "error", err.Error())
	return fmt.Errorf("stripe %s: %w", op, err)
}
