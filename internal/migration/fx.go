package migration

import (
	"github.com/landworks/cadastre/internal/config"
	"github.com/landworks/cadastre/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			// Embedded migrations target postgres. Other engines are
			// expected to be provisioned externally.
			log.Warn("skipping embedded migrations", zap.String("database_type", cfg.DBType))
			return seed.EnsureAdminUser(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		return seed.EnsureAdminUser(conn)
	}),
)
