// Package cmd implements the command line interface of bidboard.
//
// dashboard - Interactive terminal dashboard (default)
// watch - Poll badge counts headlessly and log changes
// login - Sign in and store the session tokens
// logout - Forget the stored session tokens
// inbox - Print the locally cached notifications
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/bidboard/internal/model"
)

// BuildVersion is set at link time.
var BuildVersion = ""

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "bidboard",
	Short:         "Live notification badges for the bidding marketplace",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	setupCLI()
	if errExecute := rootCmd.Execute(); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	if BuildVersion == "" {
		BuildVersion = "master"
	}
	rootCmd.Version = BuildVersion

	dashboard := dashboardCmd()
	rootCmd.RunE = dashboard.RunE
	rootCmd.AddCommand(dashboard)
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", model.DefaultConfigPath(), "config file")
}
