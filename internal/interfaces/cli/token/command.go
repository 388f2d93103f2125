package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secforge/billing/internal/infrastructure/auth"
	"github.com/secforge/billing/internal/infrastructure/config"
)

var (
	env        string
	configPath string
	userID     string
)

// NewCommand mints an access token for local testing against the API.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user",
		Long:  `Sign an access token with the configured JWT secret. Intended for development and smoke tests.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID to put in the token subject (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(configPath, env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jwtSvc := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.AccessExpMinutes)
	token, err := jwtSvc.Generate(userID)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
