// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/olegiv/ecdsites/internal/blocks"
	"github.com/olegiv/ecdsites/internal/seed"
	"github.com/olegiv/ecdsites/internal/service"
	"github.com/olegiv/ecdsites/internal/store"
	"github.com/olegiv/ecdsites/internal/version"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("database is up to date", "path", a.cfg.DBPath)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load centres, pages, menus, themes and admins from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.LoadFile(file)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			// Seeding runs outside the server; cached pages expire by TTL.
			registry := blocks.NewDefaultRegistry(a.logger)
			seeder := seed.New(seed.Services{
				Admins:  service.NewAdminService(a.db, a.logger),
				Tenants: service.NewTenantService(a.db, nil, nil, nil, a.logger),
				Pages:   service.NewPageService(a.db, registry, nil, a.logger),
				Menus:   service.NewMenuService(a.db, nil, a.logger),
				Themes:  service.NewThemeService(a.db, nil, a.logger),
			}, a.logger)

			res, err := seeder.Apply(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %d admins, %d centres, %d pages (skipped %d admins, %d centres)\n",
				res.Admins, res.Centres, res.Pages, res.SkippedAdmins, res.SkippedCentres)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed file to load")
	return cmd
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [slug...]",
		Short: "Write centres as a seed file, all centres when no slug is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := seed.Export(cmd.Context(), store.New(a.db), args...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				out, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer func() { _ = out.Close() }()
				w = out
			}
			return seed.Write(w, f)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "file to write, - for stdout")
	return cmd
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage platform admin accounts",
	}

	var in service.CreateAdminInput
	create := &cobra.Command{
		Use:   "create-user",
		Short: "Create an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := service.NewAdminService(a.db, a.logger).CreateAdmin(cmd.Context(), in)
			var ve *service.ValidationError
			if errors.As(err, &ve) {
				return fmt.Errorf("invalid admin: %s", ve.Fields.Error())
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email (required)")
	create.Flags().StringVar(&in.Name, "name", "", "display name (required)")
	create.Flags().StringVar(&in.Password, "password", "", "password, at least 12 characters (required)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("password")

	admin.AddCommand(create)
	return admin
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
