package cli

import (
	"github.com/spf13/cobra"

	"github.com/omramin/omramin/internal/globals"
	"github.com/omramin/omramin/internal/version"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "omramin",
	Short:   "Sync measurements from OMRON connect to Garmin Connect",
	Version: version.GetVersion(),
	Long: `omramin downloads weight and blood-pressure measurements recorded by
OMRON connect for your paired devices, and writes the ones Garmin Connect
does not have yet.

Devices are kept in a local registry; credentials and tokens live in the
settings file. Every sync recomputes what already exists by asking Garmin
Connect, so runs are safe to repeat.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		globals.Initialize(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
}
