package app

import (
	"github.com/spf13/cobra"

	"github.com/cordlesssteve/topolop/internal/cli"
)

// BuildRoot assembles the topolop command tree. Errors and usage stay silent
// here; main decides what to print and which exit code each error maps to.
func BuildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "topolop",
		Short:         "Unified analysis fabric: one issue stream and city model from many analyzers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.AddCommands(root)
	return root
}
