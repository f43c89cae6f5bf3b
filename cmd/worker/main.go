package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	asynqfx "idauth-entitlement/pkg/asynq"
	"idauth-entitlement/pkg/config"
	"idauth-entitlement/pkg/db"
	"idauth-entitlement/pkg/logger"
	"idauth-entitlement/services/entitlement"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		asynqfx.Server,
		entitlement.Module,
		entitlement.TaskModule,
		fx.Invoke(entitlement.RegisterTaskHandlers),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
