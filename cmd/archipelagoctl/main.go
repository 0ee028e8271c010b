// Command archipelagoctl validates and benchmarks archipelago scene files,
// the cobra-based companion CLI the way cmd/recast accompanies the
// teacher's library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "archipelagoctl",
	Short: "validate and benchmark archipelago scenes",
	Long: `archipelagoctl loads a scene file (islands, node types, agents)
and either validates it end to end or runs a fixed number of update ticks
and reports timing.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
