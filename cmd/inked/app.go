package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"inked/internal/blob"
	"inked/internal/config"
	"inked/internal/core"
	"inked/internal/events"
	"inked/internal/logging"
	"inked/internal/seed"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	store    core.PersistentStore
	svc      *core.Service
	bus      *events.Bus
	registry *prometheus.Registry
}

func openApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = closeStore(store)
		return nil, fmt.Errorf("open %s blob store: %w", cfg.Blob.Driver, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bus := events.NewBus(cfg.Events.Source, logger.With().Str("component", "events").Logger())
	svc := core.NewService(store,
		core.WithLogger(logger.With().Str("component", "core").Logger()),
		core.WithMetricsRecorder(core.NewPrometheusRecorder(registry)),
		core.WithBlobStore(blobs),
		core.WithPublisher(bus),
	)
	logger.Debug().
		Str("storage", string(cfg.Storage.Driver)).
		Str("blob", string(blobs.Driver())).
		Msg("collection opened")
	return &app{cfg: cfg, logger: logger, store: store, svc: svc, bus: bus, registry: registry}, nil
}

// seedIfEmpty loads the configured fixtures into an empty collection. A seed
// file wins over the built-in defaults.
func (a *app) seedIfEmpty(ctx context.Context) error {
	stats := a.svc.Stats(ctx)
	if stats.Pens > 0 || stats.Inks > 0 {
		return nil
	}
	var (
		c      seed.Collection
		source string
	)
	switch {
	case a.cfg.Seed.File != "":
		loaded, err := seed.Load(a.cfg.Seed.File)
		if err != nil {
			return err
		}
		c, source = loaded, a.cfg.Seed.File
	case a.cfg.Seed.Defaults:
		c, source = seed.Default(), "defaults"
	default:
		return nil
	}
	return a.importCollection(ctx, c, source)
}

func (a *app) importCollection(ctx context.Context, c seed.Collection, source string) error {
	res, err := a.svc.Import(ctx, c)
	if err != nil {
		return fmt.Errorf("import %s: %w", source, err)
	}
	if res.HasBlocking() {
		return fmt.Errorf("import %s: %s", source, violationSummary(res))
	}
	a.logger.Info().Str("source", source).Int("pens", len(c.Pens)).Int("inks", len(c.Inks)).Msg("collection seeded")
	return nil
}

func (a *app) Close() error {
	return closeStore(a.store)
}

func closeStore(store core.PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func violationSummary(res core.Result) string {
	var errs []error
	for _, v := range res.Violations {
		if v.Severity != core.SeverityBlock {
			continue
		}
		if v.Field != "" {
			errs = append(errs, fmt.Errorf("%s: %s", v.Field, v.Message))
			continue
		}
		errs = append(errs, errors.New(v.Message))
	}
	return errors.Join(errs...).Error()
}
