package main

import (
	"context"
	"flag"
	"os"

	"location-reconciler/internal/config"
	"location-reconciler/internal/logging"
	"location-reconciler/internal/repository"

	"github.com/rs/zerolog/log"
)

func main() {
	file := flag.String("file", "", "Path to the legacy county cache JSON file")
	driver := flag.String("driver", "", "Cache driver to seed (defaults to cache.driver)")
	clear := flag.Bool("clear", false, "Empty the cache before importing")
	flag.Parse()

	if *file == "" {
		log.Fatal().Msg("--file flag is required")
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("cannot load .env")
	}
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	logging.Configure(&logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if *driver != "" {
		cfg.Cache.Driver = *driver
	}

	log.Info().Str("file", *file).Msg("starting import")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open cache file")
	}
	entries, err := repository.ParseLegacyCache(f)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot parse cache file")
	}
	log.Info().Int("entries", len(entries)).Msg("parsed legacy cache")

	ctx := context.Background()
	store, err := repository.Open(ctx, repository.Options{
		Driver:   cfg.Cache.Driver,
		Path:     cfg.Cache.Path,
		DBSource: cfg.DB.Source,
		RedisURL: cfg.Cache.RedisURL,
		Table:    cfg.Cache.Table,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("cannot open county cache")
	}
	defer store.Close()

	if *clear {
		if err := store.Clear(ctx); err != nil {
			log.Fatal().Err(err).Msg("cannot clear county cache")
		}
	}

	n, err := store.ImportEntries(ctx, entries)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot import entries")
	}

	log.Info().Int64("imported", n).Str("driver", cfg.Cache.Driver).Msg("import complete")
}
