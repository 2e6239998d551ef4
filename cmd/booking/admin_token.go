package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slot-booking/internal/service"
	"github.com/noah-isme/slot-booking/pkg/config"
)

func newAdminTokenCmd() *cobra.Command {
	var ttlFlag time.Duration
	cmd := &cobra.Command{
		Use:   "admin-token <subject>",
		Short: "Print a bearer token for the admin write endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tokens := service.NewAdminTokenService(cfg.Admin.Secret, cfg.Session.Issuer)
			if tokens == nil {
				return errors.New("ADMIN_SECRET is not set")
			}
			ttl := cfg.Admin.TokenTTL
			if ttlFlag > 0 {
				ttl = ttlFlag
			}
			token, err := tokens.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "token lifetime, overrides ADMIN_TOKEN_TTL")
	return cmd
}
