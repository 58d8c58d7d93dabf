// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/playbook-dev/playbook/internal/config"
	"github.com/playbook-dev/playbook/internal/embedding"
	googleemb "github.com/playbook-dev/playbook/internal/embedding/google"
	openaiemb "github.com/playbook-dev/playbook/internal/embedding/openai"
	"github.com/playbook-dev/playbook/internal/metrics"
	"github.com/playbook-dev/playbook/internal/play"
	"github.com/playbook-dev/playbook/internal/server"
	"github.com/playbook-dev/playbook/internal/store"
	_ "github.com/playbook-dev/playbook/internal/store/postgres" // register postgres backend
	_ "github.com/playbook-dev/playbook/internal/store/sqlite"   // register sqlite backend
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Server   *server.Server
	Store    store.PlayStore
	Embedder *embedding.Composer
	Plays    *play.Service
	Metrics  *metrics.Metrics
}

// WireApp creates all subsystems and wires them together.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	m := metrics.New(metrics.DefaultConfig())

	// 1. Embedding provider, wrapped so every call is observed.
	emb, err := newEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "creating embedding provider %q", cfg.Embedding.Provider)
	}
	composer, err := embedding.NewComposer(emb,
		embedding.WithDimensions(cfg.Storage.VectorDimensions),
		embedding.WithObserver(m),
	)
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "creating embedding composer")
	}

	// 2. Play store.
	ps, err := store.New(store.StorageConfig{
		Backend:          cfg.Storage.Backend,
		DataDir:          cfg.Storage.DataDir,
		DSN:              cfg.Storage.DSN,
		VectorDimensions: cfg.Storage.VectorDimensions,
	})
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "opening %s play store", cfg.Storage.Backend)
	}

	// 3. Play service.
	svc, err := play.NewService(ps, composer, slog.Default())
	if err != nil {
		_ = ps.Close()
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "creating play service")
	}

	// 4. HTTP server.
	services, err := server.NewServices(svc, composer)
	if err != nil {
		_ = ps.Close()
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Networking.Listen,
		CORSOrigins:  cfg.Networking.CORSOrigins,
		ReadTimeout:  cfg.Networking.ReadTimeout,
		WriteTimeout: cfg.Networking.WriteTimeout,
		Version:      version,
	}, server.WithMetrics(m))
	if err != nil {
		_ = ps.Close()
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "creating server")
	}
	srv.RegisterServices(services)

	slog.Info("playbook wired",
		"backend", cfg.Storage.Backend,
		"provider", emb.Name(),
		"model", emb.Model(),
		"dimensions", cfg.Storage.VectorDimensions,
	)

	return &App{
		Server:   srv,
		Store:    ps,
		Embedder: composer,
		Plays:    svc,
		Metrics:  m,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (a *App) Start(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "closing play store"))
		}
	}
	return pberr.Join(errs...)
}

// embedderFactory builds an embedding provider from its config section.
type embedderFactory func(context.Context, config.EmbeddingConfig) (embedding.Embedder, error)

// builtinEmbedders maps provider names to their constructors.
// Declared as a variable so tests can inject fake providers.
var builtinEmbedders = map[string]embedderFactory{
	"openai": func(_ context.Context, ec config.EmbeddingConfig) (embedding.Embedder, error) {
		return openaiemb.New(openaiemb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
		})
	},
	"google": func(ctx context.Context, ec config.EmbeddingConfig) (embedding.Embedder, error) {
		return googleemb.New(ctx, googleemb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
		})
	},
}

func newEmbedder(ctx context.Context, ec config.EmbeddingConfig) (embedding.Embedder, error) {
	factory, ok := builtinEmbedders[ec.Provider]
	if !ok {
		names := make([]string, 0, len(builtinEmbedders))
		for name := range builtinEmbedders {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, pberr.New(pberr.CodeEmbeddingProviderNotFound,
			"unknown embedding provider "+ec.Provider+" (available: "+strings.Join(names, ", ")+")",
			pberr.FieldProvider(ec.Provider))
	}
	return factory(ctx, ec)
}
