package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Publisher hands committed status changes to notification collaborators.
// It is only called after the owning transaction has committed.
type Publisher interface {
	PublishStatusChange(ctx context.Context, change domain.StatusChange) error
}

// NoopPublisher drops every event. Used when no stream is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChange(context.Context, domain.StatusChange) error { return nil }

// RedisOptions configure the shared redis connection.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// StreamAdder is the slice of the redis client RedisPublisher needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher appends each status change to a redis stream.
type RedisPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
}

func NewRedisPublisher(client StreamAdder, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: 100000}
}

func (p *RedisPublisher) PublishStatusChange(ctx context.Context, change domain.StatusChange) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: streamValues(change),
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to stream %s: %w", p.stream, err)
	}
	return nil
}

func streamValues(change domain.StatusChange) map[string]interface{} {
	payload, _ := json.Marshal(change)
	return map[string]interface{}{
		"application_id":   change.ApplicationID.String(),
		"guild_id":         change.GuildID,
		"user_id":          change.UserID,
		"status":           string(change.Status),
		"action":           string(change.Action),
		"actor_id":         change.ActorID,
		"review_action_id": strconv.FormatInt(change.ReviewActionID, 10),
		"occurred_at":      change.OccurredAt.UTC().Format(time.RFC3339Nano),
		"payload":          string(payload),
	}
}
