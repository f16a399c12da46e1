package main

import (
	"encoding/json"
	"errors"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/models"
	"location-reconciler/internal/service"

	"github.com/spf13/cobra"
)

func newCountyCmd() *cobra.Command {
	var (
		lat, lon float64
		zip      string
	)

	cmd := &cobra.Command{
		Use:   "county",
		Short: "Resolve a single coordinate or postal code to its county",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hasCoord := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")
			if !hasCoord && zip == "" {
				return errors.New("either --lat and --lon or --zip is required")
			}

			resolver, err := openResolver(ctx)
			if err != nil {
				return err
			}
			defer resolver.Close()
			svc := service.NewCountyService(resolver)

			var lookup *models.CountyLookup
			if hasCoord {
				lookup, err = svc.CountyForCoordinate(ctx, lat, lon)
			} else {
				lookup, err = svc.CountyForPostalCode(ctx, zip)
			}
			if err != nil {
				return err
			}
			if lookup == nil {
				return apperrors.ErrNotFound
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(lookup)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	cmd.Flags().StringVar(&zip, "zip", "", "US postal code")

	return cmd
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the county cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached county resolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := openResolver(cmd.Context())
			if err != nil {
				return err
			}
			defer resolver.Close()
			if err := resolver.ClearCache(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("county cache cleared")
			return nil
		},
	})

	return cmd
}
