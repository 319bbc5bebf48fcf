package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/coursehub-backend/internal/clients/redis"
	"github.com/yungbote/coursehub-backend/internal/events"
	"github.com/yungbote/coursehub-backend/internal/platform/logger"
	"github.com/yungbote/coursehub-backend/internal/platform/sendgrid"
	"github.com/yungbote/coursehub-backend/internal/platform/stripe"
	"github.com/yungbote/coursehub-backend/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Bus      events.Bus
	Temporal temporalsdkclient.Client
	Mail     sendgrid.Client
	Payments stripe.Processor
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	rdb, err := redis.NewClient(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	// Events
	var bus events.Bus
	if rdb != nil {
		rb, err := events.NewRedisBus(log, rdb, cfg.EventChannel)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		bus = rb
	} else {
		bus = events.NewInProcessBus(log)
	}

	// Temporal
	var tc temporalsdkclient.Client
	if cfg.UseTemporal() {
		tc, err = temporalx.NewClient(log, temporalx.LoadConfig())
		if err != nil {
			_ = bus.Close()
			closeRedis(rdb)
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		if tc == nil {
			log.Warn("JOB_DISPATCH=temporal but TEMPORAL_ADDRESS is empty; falling back to the local worker")
		}
	}

	// SendGrid
	mailCfg := sendgrid.ConfigFromEnv()
	var mail sendgrid.Client
	if strings.TrimSpace(mailCfg.APIKey) == "" {
		log.Info("SENDGRID_API_KEY not set; emails are logged only")
		mail = sendgrid.NewLogClient(log, mailCfg)
	} else {
		mail, err = sendgrid.New(log, mailCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid: %w", err)
		}
	}

	// Stripe
	var payments stripe.Processor
	stripeCfg := stripe.ConfigFromEnv()
	if strings.TrimSpace(stripeCfg.APIKey) == "" {
		log.Warn("STRIPE_API_KEY not set; payment checkout is disabled")
	} else {
		payments, err = stripe.New(log, stripeCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init stripe: %w", err)
		}
	}

	return Clients{
		Redis:    rdb,
		Bus:      bus,
		Temporal: tc,
		Mail:     mail,
		Payments: payments,
	}, nil
}

func closeRedis(rdb *goredis.Client) {
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	closeRedis(c.Redis)
}
