package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcall/internal/ui"
	"github.com/BioHazard786/Warpcall/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warpcall",
	Short: "Multi-party audio/video calls over WebRTC with a lightweight signaling relay",
	Long: `WarpCall connects everyone in a session directly to everyone else using WebRTC.
The relay only forwards offers, answers and ICE candidates between the members of
a session; media never passes through it.

Run "warpcall serve" to start a relay and "warpcall join" to enter a session.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/warpcall/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}
