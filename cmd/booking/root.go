package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "booking [server|client] [host] [port]",
		Short: "Appointment booking server and interactive client",
		Long: "booking runs the appointment booking socket server or its interactive client. " +
			"Without a role the client is started; host and port override the configured endpoint.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runClient,
	}

	rootCmd.AddCommand(
		newServerCmd(),
		newClientCmd(),
		newMigrateCmd(),
		newAdminTokenCmd(),
	)

	return rootCmd
}

// endpoint applies optional [host] [port] arguments over the defaults.
func endpoint(defaultHost string, defaultPort int, args []string) (string, int, error) {
	host, port := defaultHost, defaultPort
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		p, err := strconv.Atoi(args[1])
		if err != nil || p < 0 || p > 65535 {
			return "", 0, fmt.Errorf("invalid port %q", args[1])
		}
		port = p
	}
	return host, port, nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
