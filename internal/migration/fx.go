package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/vaultload/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Provide(NewRunner),
)

// Runner applies the embedded schema on request.
type Runner struct {
	db     *gorm.DB
	dbType string
	log    *zap.Logger
}

func NewRunner(conn *gorm.DB, cfg config.Config, log *zap.Logger) *Runner {
	return &Runner{db: conn, dbType: strings.ToLower(strings.TrimSpace(cfg.Database.Type)), log: log.Named("migration")}
}

func (r *Runner) Up(ctx context.Context) error {
	if r.dbType != "" && r.dbType != "postgres" {
		return fmt.Errorf("%w: %s", ErrUnsupportedDialect, r.dbType)
	}
	sqlDB, err := r.db.WithContext(ctx).DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	r.log.Info("schema initialized", zap.Uint("version", version))
	return nil
}
