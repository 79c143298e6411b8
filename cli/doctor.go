package cli

import (
	"github.com/mobile-next/touchbridge/commands"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Long:  `Reports the adb binary, Android SDK location, configuration and online devices for troubleshooting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.DoctorCommand(cmd.Context(), GetVersion()))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
