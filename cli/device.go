package cli

import (
	"fmt"

	"github.com/mobile-next/touchbridge/commands"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Device management commands",
	Long:  `Commands for inspecting a device: its properties, touch input, orientation and pointer overlay.`,
}

var deviceInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Get device info",
	Long:  `Brings up the device and reports its properties, display size and touch input device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := commands.InfoCommand(cmd.Context(), deviceId)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}
		return printResponse(commands.NewSuccessResponse(map[string]interface{}{
			"device": info,
		}))
	},
}

var deviceOrientationCmd = &cobra.Command{
	Use:   "orientation",
	Short: "Get the current screen orientation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.OrientationGetCommand(cmd.Context(), commands.OrientationGetRequest{
			DeviceID: deviceId,
		}))
	},
}

var devicePointerLocationCmd = &cobra.Command{
	Use:       "pointer-location [status|show|hide|toggle]",
	Short:     "Query or change the pointer location overlay",
	Long:      `Controls the developer option that draws touch traces on screen. Without an argument the current state is reported.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"status", "show", "hide", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "status"
		if len(args) == 1 {
			action = args[0]
		}
		return printResponse(commands.PointerLocationCommand(cmd.Context(), commands.PointerLocationRequest{
			DeviceID: deviceId,
			Action:   action,
		}))
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List devices brought up by this process",
	Long:  `Mostly useful against a running server; a single CLI invocation holds at most one session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.SessionsCommand())
	},
}

func addDeviceFlag(cmd *cobra.Command, action string) {
	cmd.Flags().StringVar(&deviceId, "device", "", fmt.Sprintf("ID of the device to %s", action))
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(sessionsCmd)

	deviceCmd.AddCommand(deviceInfoCmd)
	deviceCmd.AddCommand(deviceOrientationCmd)
	deviceCmd.AddCommand(devicePointerLocationCmd)

	addDeviceFlag(deviceInfoCmd, "get info from")
	addDeviceFlag(deviceOrientationCmd, "query")
	addDeviceFlag(devicePointerLocationCmd, "configure")
}
