package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/service/common"
	"github.com/oshokin/alarm-bridge/internal/service/control"
	"github.com/oshokin/alarm-bridge/internal/version"
)

var (
	// options shared by all subcommands.
	options control.Options

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "alarm-bridge-ctl",
		Short: "Operate a running alarm-bridge over gRPC.",
		Long: `Sends commands to the alarm controller and watches live status records
and alerts through the bridge gRPC API.

The server address is taken from --server or from grpc_addr in the configuration file.`,
	}

	// sendCmd writes one command to the controller.
	sendCmd = &cobra.Command{
		Use:   "send <command>",
		Short: "Send a command to the alarm controller.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return control.Send(cmd.Context(), &options, strings.Join(args, " "))
		},
	}

	// watchCmd streams bridge messages to stdout.
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print status records, alerts and errors as JSON lines.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options.Output = cmd.OutOrStdout()

			return control.Watch(cmd.Context(), &options)
		},
	}
)

// Execute runs the alarm-bridge-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above.
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.ServerAddress, "server", "s", "", "bridge gRPC address, overrides config")
	flags.DurationVarP(&options.Timeout, "timeout", "t", common.DefaultTimeout, "timeout for unary calls")

	rootCmd.AddCommand(sendCmd, watchCmd)
}
