package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/configitems/modules/configitems"
	"github.com/iota-uz/configitems/modules/configitems/infrastructure/locking"
	"github.com/iota-uz/configitems/pkg/commands"
	"github.com/iota-uz/configitems/pkg/composables"
	"github.com/iota-uz/configitems/pkg/configuration"
	"github.com/iota-uz/configitems/pkg/tracing"
)

var envFiles = []string{".env", ".env.local"}

// env holds what every command needs: configuration, a logger on the context and the
// database connection.
type env struct {
	ctx     context.Context
	cfg     *configuration.Configuration
	db      *sqlx.DB
	closers []func(context.Context) error
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := configuration.Load(envFiles)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	e := &env{cfg: cfg}
	e.closers = append(e.closers, func(context.Context) error {
		cfg.Unload()
		return nil
	})
	ctx = composables.WithLogger(ctx, logrus.NewEntry(cfg.Logger()))

	_, shutdown, err := tracing.Setup(ctx, tracing.Options{
		ServiceName: cfg.ServiceName,
		Environment: cfg.GoAppEnvironment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		_ = e.Close()
		return nil, withCode(exitUsage, err)
	}
	e.closers = append(e.closers, shutdown)

	db, err := commands.OpenDB(ctx, cfg.Database)
	if err != nil {
		_ = e.Close()
		return nil, withCode(exitDB, err)
	}
	e.db = db
	e.closers = append(e.closers, func(context.Context) error { return db.Close() })
	e.ctx = composables.WithDB(ctx, db)
	return e, nil
}

// module builds the services on top of the detected schema layout.
func (e *env) module() (*configitems.Module, error) {
	opts := configitems.Options{
		CreateModules: e.cfg.Import.CreateModules,
		MaxItemDepth:  e.cfg.Import.MaxItemDepth,
		LockTTL:       e.cfg.Import.LockTTL,
	}
	if e.cfg.Import.LockBackend == "redis" {
		locker, err := locking.NewRedisLockerFromURL(e.cfg.RedisURL)
		if err != nil {
			return nil, withCode(exitUsage, err)
		}
		e.closers = append(e.closers, func(context.Context) error { return locker.Close() })
		opts.Locker = locker
	}
	m, err := configitems.NewModule(e.ctx, e.db, opts)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return m, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withModule runs fn against a fully wired module.
func withModule(ctx context.Context, fn func(*env, *configitems.Module) error) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	m, err := e.module()
	if err != nil {
		return err
	}
	return fn(e, m)
}
