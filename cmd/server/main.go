package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/reclab-io/reclab/internal/config"
	"github.com/reclab-io/reclab/internal/server"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	cfgPath := os.Getenv("RECLAB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/reclab.toml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn().Err(err).Msg("config file not loaded, using defaults")
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	app, err := server.Build(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}
	defer app.Close()

	r := app.Server.SetupRouter()
	log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
