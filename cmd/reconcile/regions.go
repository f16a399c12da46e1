package main

import (
	"fmt"

	"location-reconciler/internal/ingest"

	"github.com/spf13/cobra"
)

func newRegionsCmd() *cobra.Command {
	var ranked []string

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List the State Codes present in ranked-metrics exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ingest.ReadRankedFiles(ranked, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, region := range ingest.AvailableRegions(records) {
				fmt.Fprintln(out, region)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ranked, "ranked", nil, "ranked-metrics export (.csv or .xlsx), repeatable")
	_ = cmd.MarkFlagRequired("ranked")

	return cmd
}
