package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slot-booking/internal/repository"
	"github.com/noah-isme/slot-booking/internal/service"
	"github.com/noah-isme/slot-booking/pkg/config"
	"github.com/noah-isme/slot-booking/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *database.Migrator) error {
				if err := m.Up(cmd.Context()); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), func(m *database.Migrator) error {
					if err := m.Down(cmd.Context()); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd.Context(), func(m *database.Migrator) error {
					return printVersion(cmd, m)
				})
			},
		},
		newSeedImportCmd(),
	)

	return migrateCmd
}

func newSeedImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [users-file] [providers-file]",
		Short: "Replace the seed tables with the contents of the seed files",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			usersFile, providersFile := cfg.Seed.UsersFile, cfg.Seed.ProvidersFile
			if len(args) > 0 {
				usersFile = args[0]
			}
			if len(args) > 1 {
				providersFile = args[1]
			}

			seed, err := service.LoadSeed(cmd.Context(), repository.NewSeedFileRepository(usersFile, providersFile), nil)
			if err != nil {
				return err
			}

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewSeedRepository(db).Import(cmd.Context(), seed.Users, seed.Providers); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d users and %d providers\n", len(seed.Users), len(seed.Providers))
			return err
		},
	}
}

func withMigrator(ctx context.Context, fn func(*database.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := database.NewMigrator(db.DB)
	if err != nil {
		return err
	}
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *database.Migrator) error {
	version, err := m.Version(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return err
}
