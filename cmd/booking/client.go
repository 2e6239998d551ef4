package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/slot-booking/internal/client"
	"github.com/noah-isme/slot-booking/pkg/config"
)

func newClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "client [host] [port]",
		Short: "Start the interactive client",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runClient,
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	host, port, err := endpoint(cfg.Client.Host, cfg.Client.Port, args)
	if err != nil {
		return err
	}

	c := client.New(client.Config{
		Addr:         joinHostPort(host, port),
		Timeout:      cfg.Client.Timeout,
		MaxReplySize: cfg.Client.MaxReplySize,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s.\n", joinHostPort(host, port))
	return client.NewPrompt(c, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}
