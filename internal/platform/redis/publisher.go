// Package redis publishes course status changes to a Redis pub/sub channel
// so clients can follow generation without polling.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/config"
	"github.com/DineshDumka/text2learn-backend-sub000/internal/events"
	goredis "github.com/redis/go-redis/v9"
)

// publisher is the part of *goredis.Client the status publisher needs.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// StatusPublisher forwards course_status_changed events to a Redis channel.
// Other event types are ignored.
type StatusPublisher struct {
	client  publisher
	closer  func() error
	channel string
	logger  *slog.Logger
}

var _ events.EventHandler = (*StatusPublisher)(nil)

// NewStatusPublisher connects to Redis and verifies the connection with a ping.
func NewStatusPublisher(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*StatusPublisher, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
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

	p := newStatusPublisher(rdb, cfg.Channel, logger)
	p.closer = rdb.Close
	return p, nil
}

func newStatusPublisher(client publisher, channel string, logger *slog.Logger) *StatusPublisher {
	return &StatusPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "redis_status_publisher", "channel", channel),
	}
}

// HandleEvent publishes the event's status payload.
func (p *StatusPublisher) HandleEvent(ctx context.Context, event *events.Event) error {
	if event == nil || event.Type != events.TypeCourseStatusChanged {
		return nil
	}

	var payload events.CourseStatusPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("decode status payload: %w", err)
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		p.logger.WarnContext(ctx, "failed to publish course status",
			"course_id", payload.CourseID,
			"status", payload.Status,
			"error", err)
		return fmt.Errorf("redis publish: %w", err)
	}

	p.logger.DebugContext(ctx, "course status published",
		"course_id", payload.CourseID,
		"status", payload.Status)
	return nil
}

// Close releases the Redis connection.
func (p *StatusPublisher) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	return p.closer()
}
