package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// versionCmd prints build metadata for bug reports.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the repolens build information",
	Long: `Print the release, commit and build date stamped into this binary along with
the Go runtime it was compiled with. Include this output when filing issues.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("repolens %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		cmd.Printf("  commit:  %s\n", commit)
		cmd.Printf("  built:   %s\n", date)
		cmd.Printf("  runtime: %s\n", runtime.Version())
	},
}
