package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/logging"
)

// DefaultChannel is the Redis pub/sub channel used when none is configured.
const DefaultChannel = "pehub:changes"

// RedisConfig configures the Redis bridge.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisBridge publishes change-feed events to a Redis channel and forwards
// everything received on it, including its own events, into a local Hub.
// Every server instance sharing the channel sees every change.
type RedisBridge struct {
	log     *logging.Logger
	rdb     *goredis.Client
	hub     *Hub
	channel string
}

// NewRedisBridge connects and pings Redis.
func NewRedisBridge(ctx context.Context, cfg RedisConfig, hub *Hub, log *logging.Logger) (*RedisBridge, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if log == nil {
		log = logging.Nop()
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBridge{
		log:     log.With("service", "RedisChangeBridge"),
		rdb:     rdb,
		hub:     hub,
		channel: ch,
	}, nil
}

// Publish implements pehub.ChangePublisher.
func (b *RedisBridge) Publish(ctx context.Context, table, eventType string, record interface{}) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bridge not initialized")
	}
	msg, err := NewMessage(table, eventType, record)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the channel and feeds the hub until ctx is
// done. It returns once the subscription is confirmed.
func (b *RedisBridge) StartForwarder(ctx context.Context) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis bridge not initialized")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

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
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad redis change payload", "error", err)
					continue
				}
				if err := b.hub.Broadcast(msg); err != nil {
					b.log.Debug("hub rejected forwarded message", "error", err)
				}
			}
		}
	}()

	return nil
}

func (b *RedisBridge) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

var _ pehub.ChangePublisher = (*RedisBridge)(nil)
