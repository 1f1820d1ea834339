package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/config"
)

var version = "dev"

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "conjugo",
		Short: "Conjugo - French grammar problem generation service",
		Long: `Conjugo generates and serves multiple-choice French grammar problems.
Problems are pre-generated by background workers fed from a message queue
and served from a persistent pool with a staleness-weighted random pick.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		databaseCmd(),
		problemCmd(),
		generationRequestCmd(),
		cacheCmd(),
		apikeyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("conjugo %s\n", version)
		},
	}
}
