package main

import (
	"log"

	"github.com/joho/godotenv"

	"riskcorr/adapters/excel"
	"riskcorr/adapters/postgres"
	"riskcorr/app"
	"riskcorr/internal"
	"riskcorr/internal/config"
	"riskcorr/internal/profiling"
	"riskcorr/ports"
	"riskcorr/ui"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	var source ports.SeriesSource
	switch {
	case cfg.Database.URL != "":
		source, err = postgres.Open(cfg.Database.URL)
		if err != nil {
			log.Fatalf("failed to open postgres series source: %v", err)
		}
		logger.Info("[Main] using postgres series source")
	default:
		source, err = excel.NewSeriesSource(cfg.Data.WorkbookFile)
		if err != nil {
			log.Fatalf("failed to open workbook series source: %v", err)
		}
		logger.Info("[Main] using workbook series source: %s", cfg.Data.WorkbookFile)
	}

	service := app.NewAnalysisService(source, logger,
		app.WithFetchConcurrency(cfg.Analysis.FetchConcurrency),
		app.WithTimeout(cfg.Analysis.RequestTimeout),
	)

	if cfg.Profiling.Enabled {
		go profiling.NewServer(logger).Start(cfg.Profiling.Port)
	}

	server := ui.NewServer(service, logger, cfg.Server.GinMode)
	if err := server.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
