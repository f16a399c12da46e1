// Command reconcile runs the location reconciliation pipeline from the
// command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"location-reconciler/internal/config"
	"location-reconciler/internal/county"
	"location-reconciler/internal/logging"
	"location-reconciler/internal/repository"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configDir string
	logLevel  string
	cfg       config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reconcile",
		Short:         "Reconcile ranked and planned locations into per-region KMZ archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			var err error
			cfg, err = config.LoadConfig(configDir)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logging.Configure(&logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configDir, "config", "./configs", "directory holding app.yaml")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")

	root.AddCommand(newRunCmd(), newRegionsCmd(), newCountyCmd(), newCacheCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("reconcile failed")
		os.Exit(1)
	}
}

// openResolver builds the configured cache and provider chain. The caller
// closes the resolver.
func openResolver(ctx context.Context) (*county.Resolver, error) {
	store, err := repository.Open(ctx, repository.Options{
		Driver:   cfg.Cache.Driver,
		Path:     cfg.Cache.Path,
		DBSource: cfg.DB.Source,
		RedisURL: cfg.Cache.RedisURL,
		Table:    cfg.Cache.Table,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "open %s county cache", cfg.Cache.Driver)
	}

	return county.NewResolver(store, county.DefaultProviders(county.Settings{
		FCCEnabled:        cfg.County.FCCEnabled,
		NominatimEnabled:  cfg.County.NominatimEnabled,
		FCCInterval:       cfg.County.FCCInterval,
		NominatimInterval: cfg.County.NominatimInterval,
		Timeout:           cfg.County.Timeout,
		UserAgent:         cfg.County.UserAgent,
	})...), nil
}
