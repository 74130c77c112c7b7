package db

import (
	"time"

	"github.com/smallbiznis/vaultload/internal/config"
)

type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	SQLitePath      string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration

	Debug   bool
	Tracing bool
	DBStats bool
	AppName string
}

// NewConfig derives connection settings from the application config.
func NewConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.Database.Type,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Name:            cfg.Database.Name,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		SQLitePath:      cfg.Database.SQLitePath,
		MaxIdleConn:     cfg.Database.MaxIdleConn,
		MaxOpenConn:     cfg.Database.MaxOpenConn,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		SlowThreshold:   cfg.Database.SlowThreshold,
		Debug:           cfg.Debug(),
		Tracing:         cfg.Tracing.Enabled,
		DBStats:         cfg.Metrics.DBStats,
		AppName:         cfg.AppName,
	}
}
