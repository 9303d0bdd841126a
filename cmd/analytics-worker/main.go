package main

import (
	"context"
	"errors"

	"github.com/angelmondragon/washfold-backend/internal/analytics/router"
	"github.com/angelmondragon/washfold-backend/internal/analytics/worker"
	"github.com/angelmondragon/washfold-backend/internal/analytics/writer"
	"github.com/angelmondragon/washfold-backend/internal/bootstrap"
	"github.com/angelmondragon/washfold-backend/pkg/bigquery"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/washfold-backend/pkg/pubsub"
)

func main() {
	p := bootstrap.Start("analytics-worker")
	defer p.Close()
	cfg, logg, ctx := p.Config, p.Log, p.Context()

	redisClient := p.Redis()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	p.Must("connect pubsub", err)
	p.OnClose("pubsub", pubsubClient.Close)

	bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	p.Must("connect bigquery", err)
	p.OnClose("bigquery", bq.Close)

	sub := pubsubClient.AnalyticsSubscription()
	if sub == nil {
		p.Must("analytics subscription", errors.New("WASHFOLD_PUBSUB_ANALYTICS_SUBSCRIPTION is not set"))
	}

	claims, err := idempotency.New(redisClient, idempotency.ConsumerScope(worker.ConsumerName), cfg.Eventing.OutboxIdempotencyTTL)
	p.Must("idempotency tracker", err)

	rows, err := writer.New(bq, writer.Options{Table: cfg.BigQuery.OrderEventsTable})
	p.Must("bigquery writer", err)
	// Registered after bigquery so buffered rows flush before the client closes.
	p.OnClose("buffered rows", func() error { return rows.Flush(context.Background()) })

	handler, err := router.NewRouter(rows, logg)
	p.Must("event router", err)

	consumer, err := worker.NewService(sub, handler, claims, logg)
	p.Must("analytics consumer", err)

	runCtx, stop := p.SignalContext()
	defer stop()
	logg.Info(runCtx, "analytics worker running")
	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		p.Must("analytics worker", err)
	}
}
