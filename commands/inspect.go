package commands

import (
	"github.com/spf13/cobra"

	"github.com/penwyp/tracevis/internal/application/render"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
)

func newInspectCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [flags] <table>",
		Short: "Show a table's columns, visits and subject coverage",
		Long: `Parses the table with the same column and delimiter settings as a render and
prints its columns, the sorted distinct visits with subject counts, and which
subjects would be included for the selected visits. Nothing is rendered.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging(opts)

			cfg, err := buildConfig(cmd, opts, args[0])
			if err != nil {
				return err
			}
			o, err := render.NewOrchestrator(cfg, nil)
			if err != nil {
				return err
			}
			report, err := o.Inspect(cfg.Input)
			if report != nil {
				format := cfg.Report
				if format == render.ReportNone {
					format = formatter.FormatTable
				}
				printReports(cmd, format, []*formatter.Report{report})
			}
			return err
		},
	}
}
