package seed

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secforge/billing/internal/infrastructure/config"
	"github.com/secforge/billing/internal/infrastructure/database"
	"github.com/secforge/billing/internal/infrastructure/repository"
	"github.com/secforge/billing/internal/shared/logger"
)

var (
	env        string
	configPath string
	filePath   string
	dryRun     bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog rules from a YAML file",
		Long:  `Create or replace content entitlement rules listed in a catalog YAML file.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Catalog YAML file (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configPath, env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	file, err := LoadCatalogFile(filePath)
	if err != nil {
		return err
	}
	rules, err := file.DomainRules(cfg.Payments.Currency)
	if err != nil {
		return err
	}

	ladder, err := cfg.Ladder()
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if p := rule.PlanName(); p != "" && !ladder.Known(p) {
			log.Warnw("rule requires a tier missing from plans.tiers; access will be denied",
				"content_type", rule.ContentType(),
				"content_id", rule.ContentID(),
				"required_plan", p)
		}
	}

	if dryRun {
		fmt.Printf("%d rules valid\n", len(rules))
		return nil
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	n, err := Apply(context.Background(), repository.NewCatalogRepository(database.Get(), log), rules)
	if err != nil {
		return err
	}

	log.Infow("catalog seeded", "file", filePath, "rules", n)
	fmt.Printf("%d rules written\n", n)
	return nil
}
