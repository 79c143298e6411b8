package cli

import (
	"github.com/mobile-next/touchbridge/commands"
	"github.com/spf13/cobra"
)

var (
	showAllDevices bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices",
	Long:  `List Android devices and emulators known to adb.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.DevicesCommand(cmd.Context(), showAllDevices))
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().BoolVar(&showAllDevices, "all", false, "show all devices including offline ones")
}
