package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vaultload/internal/config"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB        `optional:"true"`
	GenID  *snowflake.Node `optional:"true"`
	Redis  *redis.Client   `optional:"true"`
}

// NewLedger builds the backend selected by ledger.backend.
func NewLedger(p Params) (ledgerdomain.Ledger, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	cfg := p.Config.Ledger

	switch cfg.Backend {
	case config.LedgerBackendFile, "":
		log.Info("using file ledger", zap.String("path", cfg.FilePath))
		return NewFileLedger(cfg.FilePath), nil
	case config.LedgerBackendTable:
		l, err := NewTableLedger(p.DB, p.GenID, log)
		if err != nil {
			return nil, err
		}
		if err := l.EnsureSchema(context.Background()); err != nil {
			return nil, fmt.Errorf("ensure processed_files: %w", err)
		}
		log.Info("using table ledger")
		return l, nil
	case config.LedgerBackendRedis:
		if p.Redis == nil {
			return nil, fmt.Errorf("redis ledger: %w", ledgerdomain.ErrBackendUnconfigured)
		}
		log.Info("using redis ledger", zap.String("key", cfg.RedisKey))
		return NewRedisLedger(p.Redis, cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ledgerdomain.ErrUnsupportedBackend, cfg.Backend)
	}
}
