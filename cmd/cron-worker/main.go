package main

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/washfold-backend/internal/bootstrap"
	"github.com/angelmondragon/washfold-backend/internal/cron"
	"github.com/angelmondragon/washfold-backend/internal/wiring"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
)

func main() {
	p := bootstrap.Start("cron-worker")
	defer p.Close()
	cfg, logg := p.Config, p.Log

	dbClient := p.Database()
	redisClient := p.Redis()

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+env), cfg.Cron.LockTTL)
	p.Must("cron lock", err)

	svc, err := wiring.Build(p.Context(), cfg, logg, dbClient, metrics.NewDomainMetrics(prometheus.DefaultRegisterer))
	p.Must("wire services", err)

	expiry, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:    logg,
		Orders:    svc.Orders,
		BatchSize: cfg.Cron.OrderExpiryBatch,
	})
	p.Must("order expiry job", err)
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionPeriod,
		BatchSize:  cfg.Cron.RetentionBatch,
	})
	p.Must("outbox retention job", err)

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
		Jobs:     []cron.Job{expiry, retention},
	})
	p.Must("cron scheduler", err)

	ctx, stop := p.SignalContext()
	defer stop()
	logg.Info(ctx, "cron worker running")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.Must("cron worker", err)
	}
	logg.Info(ctx, "cron worker stopped")
}
