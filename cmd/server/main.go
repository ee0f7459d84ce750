// Package main provides the entry point for the parameter service.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/narvanalabs/persistent-params/internal/api"
	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/narvanalabs/persistent-params/internal/defaults"
	"github.com/narvanalabs/persistent-params/internal/history"
	"github.com/narvanalabs/persistent-params/internal/jobconfig"
	"github.com/narvanalabs/persistent-params/internal/metrics"
	"github.com/narvanalabs/persistent-params/internal/resolver"
	"github.com/narvanalabs/persistent-params/internal/shutdown"
	"github.com/narvanalabs/persistent-params/internal/store"
	"github.com/narvanalabs/persistent-params/internal/store/memory"
	pgstore "github.com/narvanalabs/persistent-params/internal/store/postgres"
	"github.com/narvanalabs/persistent-params/pkg/config"
	"github.com/narvanalabs/persistent-params/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat == "json")

	ctx := context.Background()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	if cfg.JobsFile != "" {
		if err := importJobs(ctx, cfg.JobsFile, st, log); err != nil {
			log.Error("failed to import jobs", "file", cfg.JobsFile, "error", err)
			st.Close()
			os.Exit(1)
		}
	}

	recorder := metrics.NewRecorder()
	owners := resolver.New(st.Jobs(),
		resolver.WithTriggerSuffixes(cfg.TriggerSuffixes...),
		resolver.WithObserver(recorder),
		resolver.WithLogger(log.WithComponent("resolver").Logger),
	)
	lookup := history.NewLookup(st.Builds(), recorder, log.WithComponent("history").Logger)
	svc := defaults.NewService(owners, lookup, log.Logger)

	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, log.Logger)

	server := api.NewServer(cfg, st, svc, authService, recorder, log.Logger)

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.Logger),
	)
	coordinator.Register(shutdown.NewCloserComponent("store", st))
	coordinator.Register(shutdown.NewFuncComponent("api", server.Shutdown))

	log.Info("starting parameter service",
		"version", api.Version,
		"store", cfg.StoreDriver,
		"trigger_suffixes", cfg.TriggerSuffixes,
	)

	go func() {
		if err := server.Start(ctx); err != nil {
			log.Error("server error", "error", err)
			coordinator.Shutdown()
		}
	}()

	coordinator.WaitForSignal()
	coordinator.Wait()
	log.Info("server stopped")
	os.Exit(coordinator.ExitCode())
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; build history is lost on restart")
		return memory.New(), nil
	case config.StoreDriverPostgres:
		pg, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log.WithComponent("store").Logger)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func importJobs(ctx context.Context, path string, st store.Store, log *logger.Logger) error {
	file, err := jobconfig.LoadFile(path)
	if err != nil {
		return err
	}
	jobs, err := file.ToJobs()
	if err != nil {
		return err
	}
	result, err := jobconfig.Import(ctx, st.Jobs(), jobs, log.Logger)
	if err != nil {
		return err
	}
	log.Info("jobs imported", "file", path, "created", len(result.Created), "updated", len(result.Updated))
	return nil
}
