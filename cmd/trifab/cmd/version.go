package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, stamped in via -ldflags at release time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print trifab's build and runtime information",
	Long:  `Print the build version, commit, build time and Go runtime trifab was compiled with.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", BinName(), Version)
		fmt.Printf("  commit:     %s\n", GitCommit)
		fmt.Printf("  built:      %s\n", BuildTime)
		fmt.Printf("  go runtime: %s\n", runtime.Version())
		fmt.Printf("  os/arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  max GOMAXPROCS workers available for routing/accelerator fan-out: %d\n", runtime.GOMAXPROCS(0))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
