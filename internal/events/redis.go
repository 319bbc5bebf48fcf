package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursehub-backend/internal/platform/logger"
)

const DefaultChannel = "coursehub:course_content_changed"

// RedisBus fans events out over a redis channel. Every instance running Start
// delivers received events to its local handlers.
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	local   *inProcessBus

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) (*RedisBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		log:     log.With("service", "RedisEventBus"),
		rdb:     rdb,
		channel: channel,
		local:   &inProcessBus{log: log.With("service", "RedisEventBus")},
	}, nil
}

func (b *RedisBus) Subscribe(h Handler) { b.local.Subscribe(h) }

func (b *RedisBus) Publish(ctx context.Context, ev CourseContentChanged) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Start subscribes to the channel and forwards messages until ctx is done or Close is called.
func (b *RedisBus) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev CourseContentChanged
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				_ = b.local.dispatch(ctx, ev)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	return nil
}
