// Command shopai runs the BillShop AI gateway: storefront product match,
// the read-only SQL assistant and sale analysis, over HTTP or from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/billshop/shopai-go/cmd/shopai/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
