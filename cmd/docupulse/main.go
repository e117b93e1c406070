package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/docupulse/docupulse/internal/billingwebhook"
	"github.com/docupulse/docupulse/internal/clock"
	"github.com/docupulse/docupulse/internal/config"
	"github.com/docupulse/docupulse/internal/migration"
	"github.com/docupulse/docupulse/internal/observability/metrics"
	"github.com/docupulse/docupulse/internal/quota"
	"github.com/docupulse/docupulse/internal/ratelimit"
	"github.com/docupulse/docupulse/internal/server"
	"github.com/docupulse/docupulse/internal/tenant"
	"github.com/docupulse/docupulse/internal/usage"
	"github.com/docupulse/docupulse/internal/workflow"
	"github.com/docupulse/docupulse/pkg/db"
	pkglog "github.com/docupulse/docupulse/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		pkglog.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		metrics.Module,

		tenant.Module,
		usage.Module,
		quota.Module,
		workflow.Module,
		billingwebhook.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
