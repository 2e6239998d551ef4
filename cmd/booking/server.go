package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/slot-booking/pkg/config"
	"github.com/noah-isme/slot-booking/pkg/logger"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [host] [port]",
		Short: "Run the booking socket server",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Server.Host, cfg.Server.Port, err = endpoint(cfg.Server.Host, cfg.Server.Port, args); err != nil {
				return err
			}

			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			if cfg.Env == config.EnvProduction {
				gin.SetMode(gin.ReleaseMode)
			}

			app, err := newApplication(cmd.Context(), cfg, logr)
			if err != nil {
				logr.Error("server setup failed", zap.Error(err))
				return err
			}
			defer app.close()

			logr.Info("server starting", zap.String("addr", joinHostPort(cfg.Server.Host, cfg.Server.Port)), zap.String("env", cfg.Env))
			return app.run(cmd.Context())
		},
	}
}
