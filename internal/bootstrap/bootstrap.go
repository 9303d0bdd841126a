// Package bootstrap is the shared process setup for the binaries under cmd/:
// environment, config, logger, shared clients and ordered shutdown.
package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/washfold-backend/pkg/config"
	"github.com/angelmondragon/washfold-backend/pkg/db"
	"github.com/angelmondragon/washfold-backend/pkg/logger"
	"github.com/angelmondragon/washfold-backend/pkg/migrate"
	"github.com/angelmondragon/washfold-backend/pkg/redis"
)

var exit = os.Exit

type closer struct {
	name string
	fn   func() error
}

// Process owns everything a binary opened. Resources are closed in reverse
// order by Close, including on a fatal exit.
type Process struct {
	Name   string
	Config *config.Config
	Log    *logger.Logger

	ctx     context.Context
	closers []closer
}

// Start loads .env when present, then config, then a logger configured
// from it. Any failure ends the process.
func Start(name string) *Process {
	p := &Process{Name: name, Log: logger.New(logger.Options{ServiceName: name}), ctx: context.Background()}
	if err := godotenv.Load(); err != nil {
		p.Log.Debug(p.ctx, "no .env file, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		p.Must("load config", err)
		return p
	}
	cfg.Service.Kind = name

	p.Config = cfg
	p.Log = logger.New(logger.Options{
		ServiceName: name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	p.ctx = p.Log.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "serviceKind": name})
	return p
}

// Context carries the process log fields.
func (p *Process) Context() context.Context {
	return p.ctx
}

// Must logs err, closes what is open and exits non-zero.
func (p *Process) Must(step string, err error) {
	if err == nil {
		return
	}
	p.Log.Error(p.ctx, step+" failed", err)
	p.Close()
	exit(1)
}

func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, fn: fn})
}

func (p *Process) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.fn(); err != nil {
			p.Log.Error(p.ctx, "close "+c.name, err)
		}
	}
	p.closers = nil
}

// Database opens the pool and, in dev with auto-migrate on, applies
// pending migrations.
func (p *Process) Database() *db.Client {
	client, err := db.New(p.ctx, p.Config.DB, p.Log)
	p.Must("connect database", err)
	p.OnClose("database", client.Close)
	p.Must("dev migrations", migrate.MaybeRunDev(p.ctx, p.Config, p.Log, client))
	return client
}

func (p *Process) Redis() *redis.Client {
	client, err := redis.New(p.ctx, p.Config.Redis, p.Log)
	p.Must("connect redis", err)
	p.OnClose("redis", client.Close)
	return client
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func (p *Process) SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(p.ctx, os.Interrupt, syscall.SIGTERM)
}
