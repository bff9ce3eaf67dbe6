package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"opticare/m/internal/api"
	"opticare/m/internal/config"
	"opticare/m/internal/database"
	"opticare/m/internal/migrations"
	"opticare/m/internal/seed"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	if cfg.SeedPath != "" {
		seed.LoadStock(db, cfg.SeedPath)
	}

	handler := api.New(db, cfg.Secret)

	log.Info().Str("port", cfg.HTTPPort).Msg("OptiCare stock server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
