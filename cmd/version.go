package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"hpa-bench/internal/web"
)

// Version definida em build: -ldflags "-X hpa-bench/cmd.Version=v1.2.0"
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the application version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hpa-bench %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	web.Version = Version
	rootCmd.AddCommand(versionCmd)
}
