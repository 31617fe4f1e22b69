package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes each event to the channel "<prefix>:<event type>".
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSink(opts *redis.Options, prefix string) (*RedisSink, error) {
	if prefix == "" {
		return nil, fmt.Errorf("redis channel prefix cannot be empty")
	}
	return &RedisSink{rdb: redis.NewClient(opts), prefix: prefix}, nil
}

func (s *RedisSink) Name() string { return "redis" }

// Channel returns the channel events of type t are published on.
func (s *RedisSink) Channel(t string) string {
	return s.prefix + ":" + t
}

func (s *RedisSink) Send(ctx context.Context, msg Message) error {
	if err := s.rdb.Publish(ctx, s.Channel(string(msg.Type)), msg.Body).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
