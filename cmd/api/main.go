package main

import (
	"log"

	"resume-review-backend/internal/bootstrap"
	"resume-review-backend/internal/shared/config"
	"resume-review-backend/internal/shared/server"
	"resume-review-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg, bootstrap.Options{
		DBOptions:  db.OptionsFromEnv(db.DefaultServerOptions()),
		WithRouter: true,
	})
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
