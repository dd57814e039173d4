package main

import (
	"log"

	"ecosense-relay/internal/bootstrap"
	"ecosense-relay/internal/shared/config"
	"ecosense-relay/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting relay server on %s (dispatch=%s)", addr, cfg.DispatchMode)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
