package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/ports"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the in-memory caches",
	}
	cmd.AddCommand(cacheReloadCmd())
	return cmd
}

func cacheReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "reload [verbs|conjugations|keys]",
		Short:     "Load a cache from the database and print its stats",
		Long:      "Load the named cache (or all of them) from the database and print entry counts. Useful for verifying fixture data before starting the server.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"verbs", "conjugations", "keys"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			type entry struct {
				reload func(context.Context) error
				stats  func() ports.CacheStats
			}
			verbCache := cache.NewVerbCache(postgres.NewVerbRepository(pool))
			conjugationCache := cache.NewConjugationCache(postgres.NewConjugationRepository(pool))
			keyCache := cache.NewKeyCache(postgres.NewAPIKeyRepository(pool))
			caches := map[string]entry{
				"verbs":        {verbCache.ReloadAll, verbCache.Stats},
				"conjugations": {conjugationCache.ReloadAll, conjugationCache.Stats},
				"keys":         {keyCache.ReloadAll, keyCache.Stats},
			}

			names := []string{"verbs", "conjugations", "keys"}
			if len(args) == 1 {
				if _, ok := caches[args[0]]; !ok {
					return fmt.Errorf("unknown cache %q", args[0])
				}
				names = args
			}

			for _, name := range names {
				c := caches[name]
				if err := c.reload(ctx); err != nil {
					return fmt.Errorf("failed to reload %s cache: %w", name, err)
				}
				fmt.Printf("%-13s %d entries\n", name, c.stats().Entries)
			}
			return nil
		},
	}
}
