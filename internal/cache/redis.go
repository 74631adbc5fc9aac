package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gatekeeper-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

type redisPayload struct {
	Version uint64               `json:"version"`
	Apps    []domain.Application `json:"apps"`
}

// Redis is an OpenApplications shared by every server instance.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "gatekeeper:open-apps:"}
}

func (r *Redis) dataKey(guildID string) string    { return r.prefix + guildID }
func (r *Redis) versionKey(guildID string) string { return r.prefix + guildID + ":version" }

func (r *Redis) Get(ctx context.Context, guildID string) ([]domain.Application, uint64, bool, error) {
	vals, err := r.client.MGet(ctx, r.dataKey(guildID), r.versionKey(guildID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read open applications cache: %w", err)
	}

	var version uint64
	if s, ok := vals[1].(string); ok {
		version, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, 0, false, fmt.Errorf("corrupt cache version for guild %s: %w", guildID, err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false, nil
	}
	var payload redisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.Version != version {
		return nil, version, false, nil
	}
	return payload.Apps, version, true, nil
}

func (r *Redis) Set(ctx context.Context, guildID string, version uint64, apps []domain.Application) error {
	data, err := json.Marshal(redisPayload{Version: version, Apps: apps})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.dataKey(guildID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write open applications cache: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, guildID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, r.versionKey(guildID))
		pipe.Del(ctx, r.dataKey(guildID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate open applications cache: %w", err)
	}
	return nil
}
