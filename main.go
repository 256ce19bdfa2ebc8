package main

import (
	"fmt"
	"os"

	"github.com/penwyp/tracevis/commands"
	"github.com/penwyp/tracevis/internal/util"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, util.FormatFailure("Error: "+err.Error()))
		os.Exit(commands.ExitCode(err))
	}
}
