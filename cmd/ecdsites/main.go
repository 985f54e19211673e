// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command ecdsites runs the multi-tenant centre website platform.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/olegiv/ecdsites/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ecdsites",
		Short: "Websites for early childhood development centres",
		Long: `ecdsites serves one website per ECD centre from a single process.
Centres are resolved from the Host header: verified custom domains first,
then <slug>.<ECD_SITES_DOMAIN> subdomains.

Configuration comes from ECD_* environment variables; a .env file in the
working directory is loaded when present.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newExportCmd(),
		newAdminCmd(),
		newVersionCmd(),
	)
	return root
}
