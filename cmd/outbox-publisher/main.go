package main

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/washfold-backend/internal/bootstrap"
	"github.com/angelmondragon/washfold-backend/pkg/outbox"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/registry"
	"github.com/angelmondragon/washfold-backend/pkg/outbox/relay"
	"github.com/angelmondragon/washfold-backend/pkg/pubsub"
)

func main() {
	p := bootstrap.Start("outbox-publisher")
	defer p.Close()
	cfg, logg := p.Config, p.Log

	dbClient := p.Database()

	pubsubClient, err := pubsub.NewClient(p.Context(), cfg.GCP, cfg.PubSub, logg)
	p.Must("connect pubsub", err)
	p.OnClose("pubsub", pubsubClient.Close)

	routes, err := registry.NewEventRegistry(cfg.PubSub)
	p.Must("event registry", err)

	r, err := relay.New(dbClient, outbox.NewRepository(dbClient.DB()), routes, pubsubClient, logg, relay.Options{
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		PollInterval: time.Duration(cfg.Outbox.PollIntervalMS) * time.Millisecond,
	})
	p.Must("outbox relay", err)

	ctx, stop := p.SignalContext()
	defer stop()
	logg.Info(ctx, "outbox publisher running")
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.Must("outbox publisher", err)
	}
	logg.Info(ctx, "outbox publisher stopped")
}
