package migration

import (
	"github.com/docupulse/docupulse/internal/billingwebhook"
	"github.com/docupulse/docupulse/internal/config"
	tenantdomain "github.com/docupulse/docupulse/internal/tenant/domain"
	usagedomain "github.com/docupulse/docupulse/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Dev and test dialects skip versioned migrations.
			return conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&usagedomain.UsageEvent{},
				&usagedomain.DailyUsage{},
				&billingwebhook.WebhookEvent{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
