package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/sambabib/versions-check/pkg/logger"
)

// Version is set during build using ldflags
var Version = "dev"

var (
	verbose    bool
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "versions-check",
	Short: "Reports installed packages that have newer versions allowed by their constraints",
	Long: `versions-check compares the packages installed in a composer or npm project
with the versions published by its package sources, and lists every package
whose declared constraint allows a newer release than the one in the lock file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search for .versions-check.yaml upwards)")
}

// Execute runs the root command.
// Interrupting cancels in-flight registry requests.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
