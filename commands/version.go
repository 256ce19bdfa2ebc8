package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags "-X".
var (
	Version = "dev"
	Commit  = "none"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tracevis %s (commit %s, %s %s/%s)\n",
				Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
