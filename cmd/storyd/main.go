// storyd serves the story pipeline over WebSocket at /ws.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/dungeonstory/internal/archive"
	"github.com/lawnchairsociety/dungeonstory/internal/config"
	"github.com/lawnchairsociety/dungeonstory/internal/logger"
	"github.com/lawnchairsociety/dungeonstory/internal/pipeline"
	"github.com/lawnchairsociety/dungeonstory/internal/service"
)

func main() {
	configFile := flag.String("config", "data/dungeonstory.yaml", "Path to config YAML file")
	flag.Parse()

	logConfig, logErr := logger.LoadConfig(*configFile)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	if logErr != nil {
		logger.Warning("Failed to load logging config, using defaults", "error", logErr)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
	}

	if _, err := pipeline.OptionsFromConfig(cfg); err != nil {
		log.Fatalf("Invalid pipeline config: %v", err)
	}
	newPipeline := func() *pipeline.Pipeline {
		opts, _ := pipeline.OptionsFromConfig(cfg)
		return pipeline.New(opts)
	}

	var store service.Store
	if cfg.Archive.Enabled {
		a, err := archive.Open(cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer a.Close()
		store = a
		logger.Info("Archive opened", "driver", cfg.Archive.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := service.New(cfg.Service, newPipeline, store)
	if err := svc.ListenAndServe(ctx); err != nil {
		logger.Error("Service stopped", "error", err)
		os.Exit(1)
	}
	logger.Always("Service shut down")
}
