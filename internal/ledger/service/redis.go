package service

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vaultload/internal/config"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"go.uber.org/fx"
)

type setClient interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// RedisLedger keeps processed file ids in a redis set.
type RedisLedger struct {
	client setClient
	key    string
}

func NewRedisLedger(client setClient, key string) *RedisLedger {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "vaultload:processed_files"
	}
	return &RedisLedger{client: client, key: key}
}

var _ ledgerdomain.Ledger = (*RedisLedger)(nil)

func (l *RedisLedger) IsProcessed(ctx context.Context, fileID string) (bool, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return false, ledgerdomain.ErrEmptyFileID
	}
	return l.client.SIsMember(ctx, l.key, fileID).Result()
}

func (l *RedisLedger) MarkProcessed(ctx context.Context, entry ledgerdomain.Entry) error {
	fileID := strings.TrimSpace(entry.FileID)
	if fileID == "" {
		return ledgerdomain.ErrEmptyFileID
	}
	return l.client.SAdd(ctx, l.key, fileID).Err()
}

// ProvideRedisClient returns nil when no redis address is configured.
func ProvideRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return client
}
