package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/amlctl/internal/aml"
	"github.com/danmuck/amlctl/internal/archive"
	"github.com/danmuck/amlctl/internal/config"
	"github.com/danmuck/amlctl/internal/observability"
	"github.com/danmuck/amlctl/internal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/amld/config.toml", "amld config path (toml or yaml)")
	flag.Parse()

	logger := observability.InitLogger("amld")

	cfg := config.Default()
	if _, err := os.Stat(*configPath); err == nil {
		cfg, err = loadServiceConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load amld config")
		}
		log.Info().Str("path", *configPath).Msg("loaded amld config")
	} else if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", *configPath).Msg("config not found, using defaults")
	} else {
		log.Fatal().Err(err).Msg("failed to stat amld config")
	}

	opts, err := cfg.ParserOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid validation settings")
	}
	opts = append(opts, aml.WithLogger(logger))

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open archive")
		}
		defer store.Close()
		log.Info().Str("path", store.Path()).Msg("archive enabled")
	}

	srv := server.New(server.Options{
		ID:          cfg.ID,
		Addr:        cfg.Addr,
		CorsOrigins: cfg.CorsOrigins,
		AuthToken:   cfg.AuthToken,
		Parser:      aml.NewParser(opts...),
		Archive:     store,
		Metrics:     cfg.Metrics.Enabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("id", cfg.ID).
		Str("addr", cfg.Addr).
		Str("validation", cfg.Validation.Mode).
		Ints("supported_versions", cfg.Validation.SupportedVersions).
		Msg("amld started")
	if err := srv.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("amld stopped")
		stop()
		if store != nil {
			store.Close()
		}
		os.Exit(1)
	}
	log.Info().Msg("amld shut down")
}
