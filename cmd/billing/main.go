package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/secforge/billing/internal/interfaces/cli/migrate"
	"github.com/secforge/billing/internal/interfaces/cli/seed"
	"github.com/secforge/billing/internal/interfaces/cli/server"
	"github.com/secforge/billing/internal/interfaces/cli/token"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "billing",
		Short: "Billing - content entitlements and payment reconciliation",
		Long:  `Billing decides who may open which content, takes payments through the hosted provider and reconciles provider webhooks into grants.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		seed.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
