package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/version"
)

// NewVersionCmd constructs the `shopai version` subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shopai version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
