// Command update-orders runs one scheduled order status sweep. It is meant
// to be started from cron; concurrent runs are serialized by the Redis run
// lock when ASIC_REDIS_URL or REDIS_URL is set.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/bahodirov07uz/shop/internal/app"
	"github.com/bahodirov07uz/shop/internal/domain/order"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}

		res, err := appkg.Sweep(ctx, lg, m, cfg)
		if errors.Is(err, order.ErrSweepInProgress) {
			lg.Info("Another sweep is running, nothing to do")
			return nil
		}
		if err != nil {
			return err
		}

		lg.Info("Updated orders",
			zap.Int("updated", res.Transitioned),
			zap.Int("scanned", res.Scanned),
			zap.Int("unchanged", res.Unchanged),
			zap.Int("failed", res.Failed),
		)
		return nil
	})
}
