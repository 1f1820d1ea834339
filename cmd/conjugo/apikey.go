package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/adapters/id"
	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/auth"
	"github.com/conjugo/conjugo/internal/domain/models"
)

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(apikeyCreateCmd(), apikeyListCmd(), apikeyRevokeCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	var permissions []string
	var rateLimit int
	var allowedIPs []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a new API key",
		Long: `Mint a new API key and print the secret. The secret is shown exactly
once; only its salted hash is stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			perms := make([]models.Permission, 0, len(permissions))
			for _, p := range permissions {
				switch perm := models.Permission(strings.TrimSpace(p)); perm {
				case models.PermissionRead, models.PermissionWrite, models.PermissionAdmin:
					perms = append(perms, perm)
				default:
					return fmt.Errorf("unknown permission %q: expected read, write or admin", p)
				}
			}
			if len(perms) == 0 {
				return fmt.Errorf("at least one permission is required")
			}

			secret, hash, salt, err := auth.MintSecret()
			if err != nil {
				return fmt.Errorf("failed to mint secret: %w", err)
			}

			now := time.Now().UTC()
			key := &models.APIKey{
				ID:          id.New().GenerateAPIKeyID(),
				SecretHash:  hash,
				Salt:        salt,
				Prefix:      auth.Prefix(secret),
				Name:        name,
				Active:      true,
				Permissions: perms,
				AllowedIPs:  allowedIPs,
				RateLimit:   rateLimit,
				CreatedAt:   now,
				UpdatedAt:   now,
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.NewAPIKeyRepository(pool).Create(ctx, key); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}

			fmt.Printf("Created API key %s (%s)\n", key.ID, key.Name)
			fmt.Printf("Secret (shown once): %s\n", secret)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable key name (required)")
	cmd.Flags().StringSliceVar(&permissions, "permissions", []string{"read"}, "granted permissions: read, write, admin")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute, 0 for unlimited")
	cmd.Flags().StringSliceVar(&allowedIPs, "allowed-ips", nil, "IP or CIDR patterns; empty allows any address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			keys, err := postgres.NewAPIKeyRepository(pool).List(ctx, 200, 0)
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}
			for _, key := range keys {
				state := "active"
				if !key.Active {
					state = "revoked"
				}
				perms := make([]string, len(key.Permissions))
				for i, p := range key.Permissions {
					perms[i] = string(p)
				}
				fmt.Printf("%s  %s...  %-8s %-20s [%s] used %d times\n",
					key.ID, key.Prefix, state, key.Name, strings.Join(perms, ","), key.UsageCount)
			}
			return nil
		},
	}
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := postgres.NewAPIKeyRepository(pool)
			key, err := repo.GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load key: %w", err)
			}
			key.Active = false
			key.UpdatedAt = time.Now().UTC()
			if err := repo.Update(ctx, key); err != nil {
				return fmt.Errorf("failed to revoke key: %w", err)
			}
			fmt.Printf("Revoked %s (%s)\n", key.ID, key.Name)
			return nil
		},
	}
}
