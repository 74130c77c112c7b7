package vault

import (
	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/smallbiznis/vaultload/internal/vault/decompose"
	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/internal/vault/loader"
	"github.com/smallbiznis/vaultload/internal/vault/normalize"
	"github.com/smallbiznis/vaultload/internal/vault/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("vault",
	fx.Provide(domain.Catalog),
	fx.Provide(provideNormalizer),
	fx.Provide(decompose.New),
	fx.Provide(provideStore),
	fx.Provide(provideLoader),
)

func provideNormalizer(cfg config.Config, defs []domain.Definition) *normalize.Normalizer {
	return normalize.New(domain.ExpectedColumns(defs), cfg.Pipeline.RequiredColumns)
}

func provideStore(conn *gorm.DB, cfg config.Config) loader.Store {
	return repository.NewStore(conn, cfg.Pipeline.BatchSize)
}

func provideLoader(store loader.Store, log *zap.Logger) *loader.Loader {
	return loader.New(store, log)
}
