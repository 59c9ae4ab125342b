package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-bridge/internal/config"
	"github.com/oshokin/alarm-bridge/internal/service/bridge"
	"github.com/oshokin/alarm-bridge/internal/service/control"
	"github.com/oshokin/alarm-bridge/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// devicePort overrides the serial device from config.
	devicePort string

	// rootCmd represents the base command for running the bridge.
	rootCmd = &cobra.Command{
		Use:   "alarm-bridge [listen-address]",
		Short: "Bridge a serial alarm controller to realtime subscribers.",
		Long: `Reads newline-delimited JSON status records from the alarm controller,
publishes every status and every alarm or high-temperature transition to
WebSocket and gRPC subscribers, and relays operator commands back to the device.

Listen address can be provided as argument to override config (e.g., :8080).
The serial device can be overridden with --device.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return bridge.Run(ctx, &bridge.Options{
				ConfigPath:    configPath,
				DevicePort:    devicePort,
				ListenAddress: listenAddress,
			})
		},
	}

	// portsCmd lists serial ports to help fill in device_port.
	portsCmd = &cobra.Command{
		Use:   "ports",
		Short: "List serial ports available on this host.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return control.ListPorts(cmd.OutOrStdout())
		},
	}
)

// Execute runs the alarm-bridge CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&devicePort, "device", "d", "", "serial device path, overrides config")

	rootCmd.AddCommand(portsCmd)
}
