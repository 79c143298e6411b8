package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mobile-next/touchbridge/commands"
	"github.com/mobile-next/touchbridge/config"
	"github.com/mobile-next/touchbridge/utils"
	"github.com/spf13/cobra"
)

const version = "dev"

func GetVersion() string {
	return version
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "touchbridge",
	Short: "Drive Android touchscreens and keyboards over adb",
	Long:  `Synthesizes touch, key and text input on Android devices by writing kernel input events, and captures the framebuffer.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// initConfig loads the config file and applies it before any command runs.
func initConfig(cmd *cobra.Command, args []string) error {
	utils.SetVerbose(verbose)

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := utils.ConfigureLogging(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	commands.SetConfig(cfg)

	utils.Verbose("configuration: %s", describeSource(cfg))
	return nil
}

func describeSource(cfg *config.Config) string {
	if cfg.Source == "" {
		return "defaults"
	}
	return cfg.Source
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	// enable microseconds in logs
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.ExecuteContext(ctx)
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}

// printResponse prints a command response and turns a failed one into an error.
func printResponse(response *commands.CommandResponse) error {
	printJson(response)
	if response.Status == "error" {
		return fmt.Errorf("%s", response.Error)
	}
	return nil
}
