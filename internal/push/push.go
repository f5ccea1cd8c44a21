package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrcolv86/bierserv/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Gateway publishes push notification payloads on a Redis pub/sub channel
// consumed by the mobile push relay. The whole subsystem is best-effort:
// callers log and swallow every error.
type Gateway struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

// payload is the message shape the push relay expects
type payload struct {
	Role  string `json:"role,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewGateway connects to Redis and returns a push gateway publishing on
// the given channel.
func NewGateway(addr, password string, db int, channel string) (*Gateway, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Gateway{
		rdb:     rdb,
		channel: channel,
		logger:  util.GetLogger(),
	}, nil
}

// Close closes the Redis connection
func (g *Gateway) Close() error {
	return g.rdb.Close()
}

// PushToRole publishes a notification addressed to every device registered
// for the given staff role.
func (g *Gateway) PushToRole(ctx context.Context, role, title, body string) error {
	raw, err := json.Marshal(payload{Role: role, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	if err := g.rdb.Publish(ctx, g.channel, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish push payload: %w", err)
	}

	g.logger.Debug("Push payload published",
		zap.String("role", role),
		zap.String("title", title))
	return nil
}

// Healthy reports whether the relay channel is reachable
func (g *Gateway) Healthy(ctx context.Context) bool {
	return g.rdb.Ping(ctx).Err() == nil
}
