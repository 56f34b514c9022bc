package main

import (
	"log"

	"docsearch-backend/internal/bootstrap"
	"docsearch-backend/internal/shared/config"
	"docsearch-backend/internal/shared/metrics"
	"docsearch-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
