package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/timeutil"
)

func generationRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generation-request",
		Short: "Manage generation request records",
	}
	cmd.AddCommand(generationRequestCleanCmd())
	return cmd
}

func generationRequestCleanCmd() *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete terminal generation requests created before a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := timeutil.ParseCutoff(olderThan, time.Now().UTC())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			deleted, err := postgres.NewGenerationRequestRepository(pool).DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("failed to clean generation requests: %w", err)
			}
			fmt.Printf("Deleted %d generation requests older than %s\n", deleted, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "cutoff: <n>{m|h|d|w}, a date, or an RFC3339 timestamp (required)")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}
