package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	asynqfx "idauth-entitlement/pkg/asynq"
	"idauth-entitlement/pkg/config"
	"idauth-entitlement/pkg/db"
	"idauth-entitlement/pkg/health"
	"idauth-entitlement/pkg/logger"
	"idauth-entitlement/pkg/otelcol"
	"idauth-entitlement/pkg/otelcol/exporters"
	"idauth-entitlement/pkg/redis"
	"idauth-entitlement/pkg/server"
	"idauth-entitlement/pkg/task"
	"idauth-entitlement/services/entitlement"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		asynqfx.Client,
		task.Module,
		health.Module,
		otelcol.Module,
		fx.Provide(
			provideSnowflakeNode,
			fx.Annotate(exporters.ProvideGrpc, fx.As(new(sdktrace.SpanExporter))),
		),
		entitlement.ServerModule,
		server.ProvideHTTPServer,
		fx.Invoke(db.Otel, db.Metric),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
