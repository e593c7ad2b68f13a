// Package commands defines the Cobra commands of the shopai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/billshop/shopai-go/internal/audit"
	"github.com/billshop/shopai-go/internal/config"
	"github.com/billshop/shopai-go/internal/logging"
)

var (
	// configPath holds the --config flag value for YAML config file override.
	configPath string
	// envFile holds the --env-file flag value.
	envFile string
)

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shopai",
		Short: "BillShop AI gateway: product match, SQL assistant and sale analysis",
		Long: `shopai glues the shop's vector index, relational database and an LLM
into a small set of tools for the storefront and the back office.

Configuration is layered: .env file, then YAML (~/.shopai/config.yaml or
--config), then environment variables, which always win.
See 'shopai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// YAML first: values it sets count as present, so .env only
			// fills what neither the environment nor YAML provided.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			if err := config.LoadDotEnv(envFile, log); err != nil {
				return err
			}

			audit.LogCommandStart(log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.shopai/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file; missing files are ignored")

	root.AddCommand(
		NewServeCmd(),
		NewMatchCmd(),
		NewAskCmd(),
		NewSalesCmd(),
		NewIngestCmd(),
		NewVersionCmd(),
	)
	return root
}
