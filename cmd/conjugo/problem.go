package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/timeutil"
)

func problemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "problem",
		Short: "Manage the problem pool",
	}
	cmd.AddCommand(problemPurgeCmd())
	return cmd
}

func problemPurgeCmd() *cobra.Command {
	var olderThan string
	var topic string
	var force bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete problems created before a cutoff",
		Long: `Delete problems created before a cutoff, optionally restricted to a
topic tag. Sentences referenced only by purged problems are removed too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := timeutil.ParseCutoff(olderThan, time.Now().UTC())
			if err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("refusing to purge without --force (cutoff %s)", cutoff.Format(time.RFC3339))
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			deleted, err := postgres.NewProblemRepository(pool).PurgeOlderThan(ctx, cutoff, topic)
			if err != nil {
				return fmt.Errorf("failed to purge problems: %w", err)
			}
			fmt.Printf("Purged %d problems older than %s\n", deleted, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "cutoff: <n>{m|h|d|w}, a date, or an RFC3339 timestamp (required)")
	cmd.Flags().StringVar(&topic, "topic", "", "only purge problems carrying this topic tag")
	cmd.Flags().BoolVar(&force, "force", false, "actually delete; without it the command only reports the cutoff")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}
