package bootstrap

import (
	"context"
	"pippin/internal/config"
	"pippin/internal/usecase"
	"pippin/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerSession(lc fx.Lifecycle, session *usecase.Session, cfg *config.Config, logger *zap.Logger) {
	logger = logger.With(zap.String(logg.Session, session.ID.String()))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Debug("Session started",
				zap.String(logg.Device, cfg.DeviceConfig.UDID),
				zap.String("wda_url", cfg.WDAConfig.URL),
				zap.Bool("fixture", cfg.DeviceConfig.SnapshotFile != ""),
			)

			return nil
		},
		OnStop: func(context.Context) error {
			logger.Debug("Session finished")

			return nil
		},
	})
}
