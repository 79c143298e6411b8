package cli

import (
	"fmt"

	"github.com/mobile-next/touchbridge/commands"
	"github.com/mobile-next/touchbridge/config"
	"github.com/mobile-next/touchbridge/daemon"
	"github.com/mobile-next/touchbridge/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the touchbridge JSON-RPC server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the touchbridge server",
	Long:  `Starts the JSON-RPC server on /rpc (HTTP) and /ws (WebSocket). Device sessions stay up between requests.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := commands.Settings()

		// GetString/GetBool cannot fail for defined flags
		listenAddr, _ := cmd.Flags().GetString("listen")
		if listenAddr == "" {
			listenAddr = cfg.Server.Listen
		}
		enableCORS, _ := cmd.Flags().GetBool("cors")
		enableCORS = enableCORS || cfg.Server.CORS
		isDaemon, _ := cmd.Flags().GetBool("daemon")

		if isDaemon && !daemon.IsChild() {
			_, err := daemon.Daemonize()
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", listenAddr)
			return nil
		}

		var loader *config.Loader
		if cfg.Source != "" {
			loader = config.NewLoader(cfg.Source)
			if _, err := loader.Load(); err != nil {
				return err
			}
		}

		return server.StartServer(cmd.Context(), listenAddr, enableCORS, loader)
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized touchbridge server",
	Long:  `Connects to the server and sends a shutdown command via JSON-RPC.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// GetString cannot fail for defined flags
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = commands.Settings().Server.Listen
		}

		err := daemon.KillServer(addr)
		if err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	serverStartCmd.Flags().String("listen", "", "Address to listen on (e.g., 'localhost:12000' or '0.0.0.0:13000', default from config)")
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")

	serverKillCmd.Flags().String("listen", "", "Address of server to kill (default from config)")
}
