// Package app wires the long-lived components together. Everything is an
// explicit handle on the Container; there are no package-level singletons.
package app

import (
	"context"
	"time"

	"blockdock/internal/backup"
	"blockdock/internal/config"
	"blockdock/internal/domain"
	"blockdock/internal/driver"
	"blockdock/internal/logger"
	"blockdock/internal/orchestrator"
	"blockdock/internal/registry"
	"blockdock/internal/store"
	"blockdock/internal/version"
)

type Container struct {
	Config       *config.Config
	Registry     *registry.Registry
	Store        *store.Store
	Resolver     *version.Resolver
	Driver       *driver.DockerDriver
	Backups      *backup.Engine
	Orchestrator *orchestrator.Orchestrator
}

// New builds the full component graph from the loaded config.
func New(cfg *config.Config) (*Container, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	drv, err := driver.NewDocker(logger.For("driver"))
	if err != nil {
		return nil, err
	}

	resolver := version.New(cfg.ManifestEndpoints, st,
		time.Duration(cfg.ResolverStaleness), logger.For("resolver"))

	statusFn := func(ctx context.Context, serverName string) (domain.RuntimeStatus, error) {
		return drv.Status(ctx, driver.HandleFor(serverName))
	}
	engine := backup.New(cfg.BackupsPath, st, statusFn, logger.For("backup"))

	orch := orchestrator.New(reg, resolver, drv, engine, cfg, logger.For("orchestrator"))

	return &Container{
		Config:       cfg,
		Registry:     reg,
		Store:        st,
		Resolver:     resolver,
		Driver:       drv,
		Backups:      engine,
		Orchestrator: orch,
	}, nil
}
