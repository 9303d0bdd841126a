package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/washfold-backend/api/routes"
	"github.com/angelmondragon/washfold-backend/internal/bootstrap"
	gatewaywebhook "github.com/angelmondragon/washfold-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/washfold-backend/internal/wiring"
	"github.com/angelmondragon/washfold-backend/pkg/metrics"
)

const (
	webhookScope    = "payments-webhook"
	shutdownTimeout = 15 * time.Second
)

func main() {
	p := bootstrap.Start("api")
	defer p.Close()
	cfg, logg := p.Config, p.Log

	dbClient := p.Database()
	redisClient := p.Redis()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := wiring.Build(p.Context(), cfg, logg, dbClient, metrics.NewDomainMetrics(reg))
	p.Must("wire services", err)

	guard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookTTL, webhookScope)
	p.Must("webhook guard", err)

	// PORT is set by the hosting platform and wins over config.
	port := cfg.App.Port
	if v := os.Getenv("PORT"); v != "" {
		port = v
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			svc.Orders, svc.Slots, svc.Coupons, svc.Agents, svc.Assignments, svc.Payments,
			guard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := p.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"addr": server.Addr, "gateway": svc.GatewayName})

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()
	logg.Info(ctx, "api listening")

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			p.Must("api server", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api shutdown", err)
		}
	}
	logg.Info(ctx, "api stopped")
}
